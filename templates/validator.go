package templates

import (
	"fmt"
	"strings"

	"reportforge/errs"
)

// Warning is a non-fatal finding; defaults are substituted.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Path + ": " + w.Message
}

// ValidateOptions tunes the validator.
type ValidateOptions struct {
	// Lenient turns unknown element types into warnings so previews can
	// render them as placeholders.
	Lenient bool
}

var requiredKeys = []string{"metadata", "settings", "slides"}

func typeNames() []string {
	names := make([]string, len(ElementTypes))
	for i, t := range ElementTypes {
		names[i] = string(t)
	}
	return names
}

// ValidateDocument checks the structure of a decoded template document
// (JSON or YAML decoded into generic values) before it is typed.
func ValidateDocument(doc any, opts ValidateOptions) ([]Warning, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &errs.StructuralError{Reason: "template must be an object"}
	}

	for _, key := range requiredKeys {
		if _, ok := root[key]; !ok {
			return nil, &errs.StructuralError{Reason: fmt.Sprintf("missing required key %q", key)}
		}
	}

	meta, ok := root["metadata"].(map[string]any)
	if !ok {
		return nil, &errs.StructuralError{Path: "metadata", Reason: "must be an object"}
	}
	if name, _ := meta["name"].(string); strings.TrimSpace(name) == "" {
		return nil, &errs.StructuralError{Path: "metadata.name", Reason: "must be a non-empty string"}
	}

	var warnings []Warning
	settings, ok := root["settings"].(map[string]any)
	if !ok {
		return nil, &errs.StructuralError{Path: "settings", Reason: "must be an object"}
	}
	if ps, present := settings["page_size"]; present {
		if s, _ := ps.(string); s != PageSize16x9 && s != PageSize4x3 {
			warnings = append(warnings, Warning{Path: "settings.page_size", Message: fmt.Sprintf("unknown page size %v, using 16:9", ps)})
		}
	}

	slides, ok := root["slides"].([]any)
	if !ok {
		return nil, &errs.StructuralError{Path: "slides", Reason: "must be a list"}
	}
	if len(slides) == 0 {
		return nil, &errs.StructuralError{Path: "slides", Reason: "template must have at least one slide"}
	}

	for i, s := range slides {
		path := fmt.Sprintf("slides[%d]", i)
		slide, ok := s.(map[string]any)
		if !ok {
			return nil, &errs.StructuralError{Path: path, Reason: "slide must be an object"}
		}
		rawComponents, present := slide["components"]
		if !present || rawComponents == nil {
			return nil, &errs.StructuralError{Path: path, Reason: "slide has no components list"}
		}
		components, ok := rawComponents.([]any)
		if !ok {
			return nil, &errs.StructuralError{Path: path + ".components", Reason: "must be a list"}
		}
		for j, c := range components {
			w, err := validateComponent(fmt.Sprintf("%s.components[%d]", path, j), c, opts)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
		}
	}
	return warnings, nil
}

func validateComponent(path string, c any, opts ValidateOptions) ([]Warning, error) {
	comp, ok := c.(map[string]any)
	if !ok {
		return nil, &errs.StructuralError{Path: path, Reason: "component must be an object"}
	}

	var warnings []Warning
	tag, _ := comp["type"].(string)
	if !ElementType(tag).IsValid() {
		reason := "component has no type"
		if tag != "" {
			reason = fmt.Sprintf("unknown component type %q", tag)
			if s := errs.Suggest(tag, typeNames()); s != "" {
				reason += fmt.Sprintf(" (did you mean %q?)", s)
			}
		}
		if !opts.Lenient {
			return nil, &errs.StructuralError{Path: path + ".type", Reason: reason}
		}
		warnings = append(warnings, Warning{Path: path + ".type", Message: reason + ", will render as a placeholder"})
	}

	if pos, present := comp["position"]; !present || pos == nil {
		warnings = append(warnings, Warning{Path: path + ".position", Message: fmt.Sprintf("missing, using x=%g y=%g", DefaultPosition.X, DefaultPosition.Y)})
	} else if err := checkPair(path+".position", pos, "x", "y", false); err != nil {
		return nil, err
	}

	if size, present := comp["size"]; !present || size == nil {
		warnings = append(warnings, Warning{Path: path + ".size", Message: fmt.Sprintf("missing, using %gx%g", DefaultSize.Width, DefaultSize.Height)})
	} else if err := checkPair(path+".size", size, "width", "height", true); err != nil {
		return nil, err
	}
	return warnings, nil
}

// checkPair validates a two-number object. Sizes must be > 0, positions >= 0.
func checkPair(path string, v any, a, b string, strict bool) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return &errs.StructuralError{Path: path, Reason: "must be an object"}
	}
	for _, key := range []string{a, b} {
		n, ok := number(obj[key])
		if !ok {
			return &errs.StructuralError{Path: path + "." + key, Reason: "must be a number"}
		}
		if strict && n <= 0 {
			return &errs.StructuralError{Path: path + "." + key, Reason: fmt.Sprintf("must be greater than 0, got %g", n)}
		}
		if !strict && n < 0 {
			return &errs.StructuralError{Path: path + "." + key, Reason: fmt.Sprintf("must not be negative, got %g", n)}
		}
	}
	return nil
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
