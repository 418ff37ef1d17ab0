package element

import (
	"fmt"
	"strings"
)

// Decoration reports whether an optional visual effect was drawn.
type Decoration struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

func Applied(name string) Decoration {
	return Decoration{Name: name, Applied: true}
}

func Unsupported(name, reason string) Decoration {
	return Decoration{Name: name, Reason: reason}
}

func (d Decoration) String() string {
	if d.Applied {
		return d.Name + ": applied"
	}
	return fmt.Sprintf("%s: unsupported (%s)", d.Name, d.Reason)
}

// Outcome describes what a Render call drew.
type Outcome struct {
	// Placeholder is set when the element drew its fallback shape instead
	// of its content; Reason says why.
	Placeholder bool
	Reason      string
	Decorations []Decoration
	Notes       []string
}

func (o *Outcome) note(format string, args ...interface{}) {
	o.Notes = append(o.Notes, fmt.Sprintf(format, args...))
}

func (o Outcome) String() string {
	var parts []string
	if o.Placeholder {
		parts = append(parts, "placeholder: "+o.Reason)
	} else {
		parts = append(parts, "rendered")
	}
	for _, d := range o.Decorations {
		parts = append(parts, d.String())
	}
	parts = append(parts, o.Notes...)
	return strings.Join(parts, "; ")
}
