package element

import (
	"context"
	"regexp"
	"strings"

	"reportforge/canvas"
	"reportforge/mapper"
	"reportforge/templates"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.\-]+)\}`)

// Substitute replaces {key} placeholders found in vars. Unknown keys are
// left as written.
func Substitute(content string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Text draws a templated string.
type Text struct {
	base
	conf templates.TextConfig
}

func NewText(cfg templates.ElementConfig, env *Env) *Text {
	t := &Text{base: newBase(cfg, env)}
	if cfg.Text != nil {
		t.conf = *cfg.Text
	}
	return t
}

func (t *Text) Validate() error {
	if err := t.validateGeometry(); err != nil {
		return err
	}
	switch strings.ToLower(t.conf.AlignTag()) {
	case "", "left", "center", "centre", "right", "justify":
	default:
		return t.configErr("align", "unknown alignment %q", t.conf.AlignTag())
	}
	return nil
}

func (t *Text) font() canvas.Font {
	s := t.env.Settings
	size := s.DefaultFontSize
	if size <= 0 {
		size = templates.DefaultFontSize
	}
	return canvas.Font{
		Name:   t.conf.FontOr(t.env.font()),
		Size:   float64(t.conf.SizeOr(size)),
		Bold:   t.conf.Bold,
		Italic: t.conf.Italic,
		Color:  canvas.ColorOr(t.conf.Color, canvas.ColorOr(s.ColorScheme.Text, canvas.Black)),
	}
}

// Content resolves the configured content against vars.
func (t *Text) Content(vars map[string]string) string {
	return Substitute(t.conf.Content, vars)
}

func (t *Text) Render(_ context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error) {
	vars := data.Variables
	if vars == nil {
		vars = t.conf.Variables
	}
	box := canvas.TextBox{
		Box:        t.box,
		Paragraphs: canvas.Lines(t.Content(vars), t.font(), canvas.ParseAlign(t.conf.AlignTag())),
	}
	if t.conf.Fill != "" {
		fill := canvas.ColorOr(t.conf.Fill, canvas.White)
		box.Fill = &fill
	}
	return Outcome{}, page.AddText(box)
}

func (t *Text) Serialize() templates.ElementConfig {
	out := t.serialize()
	conf := t.conf
	out.Text = &conf
	return out
}
