// Package element implements the five renderable element variants. Elements
// are pure render functions of their config and the data handed to Render;
// they never keep state between renders.
package element

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"reportforge/canvas"
	"reportforge/errs"
	"reportforge/mapper"
	"reportforge/templates"
)

// Element is the contract shared by all variants.
type Element interface {
	Type() templates.ElementType
	Box() canvas.Box
	Validate() error
	// Render draws onto page. Data problems produce a placeholder and an
	// Outcome describing it; only canvas failures return an error.
	Render(ctx context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error)
	Serialize() templates.ElementConfig
}

// Env is the read-only context elements render in.
type Env struct {
	Settings        *templates.Settings
	ProjectRoot     string
	LogoDirs        []string
	ChartDPI        float64
	MaxRasterExtent int
	TempDir         string
	HTTPClient      *http.Client
	Logger          func(string)
}

const (
	DefaultChartDPI        = 150
	DefaultMaxRasterExtent = 4096
)

// NewEnv returns an Env with defaults for everything but settings.
func NewEnv(settings *templates.Settings) *Env {
	if settings == nil {
		settings = &templates.Settings{}
	}
	return &Env{
		Settings:        settings,
		ProjectRoot:     ".",
		LogoDirs:        []string{".", "templates", "assets"},
		ChartDPI:        DefaultChartDPI,
		MaxRasterExtent: DefaultMaxRasterExtent,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *Env) logf(format string, args ...interface{}) {
	if e != nil && e.Logger != nil {
		e.Logger(fmt.Sprintf(format, args...))
	}
}

func (e *Env) font() string {
	if e.Settings.DefaultFont != "" {
		return e.Settings.DefaultFont
	}
	return templates.DefaultFont
}

// base carries what every variant shares.
type base struct {
	cfg templates.ElementConfig
	box canvas.Box
	env *Env
}

func newBase(cfg templates.ElementConfig, env *Env) base {
	if env == nil {
		env = NewEnv(nil)
	}
	pos, size := cfg.ResolvedPosition(), cfg.ResolvedSize()
	return base{
		cfg: cfg,
		box: canvas.Box{X: pos.X, Y: pos.Y, W: size.Width, H: size.Height},
		env: env,
	}
}

func (b base) Type() templates.ElementType { return b.cfg.Type }
func (b base) Box() canvas.Box             { return b.box }

func (b base) validateGeometry() error {
	if b.box.W <= 0 || b.box.H <= 0 {
		return b.configErr("size", "size must be positive, got %gx%g", b.box.W, b.box.H)
	}
	if b.box.X < 0 || b.box.Y < 0 {
		return b.configErr("position", "position must be non-negative, got (%g, %g)", b.box.X, b.box.Y)
	}
	return nil
}

func (b base) configErr(field, format string, args ...interface{}) error {
	return errs.Configf(string(b.cfg.Type), field, format, args...)
}

// serialize returns the config with geometry defaults written out.
func (b base) serialize() templates.ElementConfig {
	out := b.cfg
	pos, size := b.cfg.ResolvedPosition(), b.cfg.ResolvedSize()
	out.Position, out.Size = &pos, &size
	return out
}
