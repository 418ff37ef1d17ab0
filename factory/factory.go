// Package factory builds elements from their configs.
package factory

import (
	"reportforge/element"
	"reportforge/errs"
	"reportforge/templates"
)

// SupportedTypes lists the registered element types in stable order.
func SupportedTypes() []string {
	out := make([]string, len(templates.ElementTypes))
	for i, t := range templates.ElementTypes {
		out[i] = string(t)
	}
	return out
}

// Factory constructs elements sharing one render environment.
type Factory struct {
	env *element.Env
}

// New returns a Factory. A nil env gets element defaults.
func New(env *element.Env) *Factory {
	if env == nil {
		env = element.NewEnv(nil)
	}
	return &Factory{env: env}
}

// Env returns the environment handed to every element.
func (f *Factory) Env() *element.Env { return f.env }

func (f *Factory) construct(cfg templates.ElementConfig) (element.Element, error) {
	switch cfg.Type {
	case templates.TypeText:
		return element.NewText(cfg, f.env), nil
	case templates.TypeTable:
		return element.NewTable(cfg, f.env), nil
	case templates.TypeImage:
		return element.NewImage(cfg, f.env), nil
	case templates.TypeChart:
		return element.NewChart(cfg, f.env), nil
	case templates.TypeSummary:
		return element.NewSummary(cfg, f.env), nil
	}

	e := &errs.ConfigurationError{Type: string(cfg.Type), Field: "type", Index: -1}
	if cfg.Type == "" {
		e.Reason = "missing element type"
		return nil, e
	}
	e.Reason = "unknown element type, supported: text, table, image, chart, summary"
	e.Suggestion = errs.Suggest(string(cfg.Type), SupportedTypes())
	return nil, e
}

// Create builds and validates one element.
func (f *Factory) Create(cfg templates.ElementConfig) (element.Element, error) {
	if cfg.DecodeErr != nil {
		return nil, cfg.DecodeErr
	}
	el, err := f.construct(cfg)
	if err != nil {
		return nil, err
	}
	if err := el.Validate(); err != nil {
		return nil, err
	}
	return el, nil
}

// CreateMany builds every config in order and stops at the first failure,
// whose error carries the config's index.
func (f *Factory) CreateMany(cfgs []templates.ElementConfig) ([]element.Element, error) {
	out := make([]element.Element, 0, len(cfgs))
	for i, cfg := range cfgs {
		el, err := f.Create(cfg)
		if err != nil {
			return nil, withIndex(err, i, cfg.Type)
		}
		out = append(out, el)
	}
	return out, nil
}

// ValidateOnly checks a config without keeping the element.
func (f *Factory) ValidateOnly(cfg templates.ElementConfig) error {
	_, err := f.Create(cfg)
	return err
}

func withIndex(err error, i int, t templates.ElementType) error {
	if ce, ok := err.(*errs.ConfigurationError); ok {
		c := *ce
		c.Index = i
		return &c
	}
	return &errs.ConfigurationError{Type: string(t), Index: i, Reason: err.Error()}
}
