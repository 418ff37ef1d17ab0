// Package templates defines the declarative document that drives generation:
// metadata, settings and an ordered list of slides of element configs.
package templates

import "strings"

// ElementType tags one of the five element variants.
type ElementType string

const (
	TypeText    ElementType = "text"
	TypeTable   ElementType = "table"
	TypeImage   ElementType = "image"
	TypeChart   ElementType = "chart"
	TypeSummary ElementType = "summary"
)

// ElementTypes is the closed set of element variants in registry order.
var ElementTypes = []ElementType{TypeText, TypeTable, TypeImage, TypeChart, TypeSummary}

// IsValid reports whether t is one of the five variants.
func (t ElementType) IsValid() bool {
	for _, v := range ElementTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Page sizes
const (
	PageSize16x9 = "16:9"
	PageSize4x3  = "4:3"
)

// Layout tags and the slide layout index each maps to.
var layoutIndex = map[string]int{
	"title":         0,
	"title_content": 1,
	"section":       2,
	"two_content":   3,
	"comparison":    4,
	"blank":         5,
	"content":       6,
}

// LayoutIndex maps a layout tag to its index; unknown tags map to blank.
func LayoutIndex(tag string) int {
	if i, ok := layoutIndex[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return i
	}
	return layoutIndex["blank"]
}

// LayoutTag is the inverse of LayoutIndex; unknown indexes are "blank".
func LayoutTag(index int) string {
	for tag, i := range layoutIndex {
		if i == index {
			return tag
		}
	}
	return "blank"
}

// Template is the whole document. Treat it as read-only once validated.
type Template struct {
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Settings Settings `json:"settings" yaml:"settings"`
	Slides   []Slide  `json:"slides" yaml:"slides"`
}

type Metadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedDate string `json:"created_date,omitempty" yaml:"created_date,omitempty"`
}

// ColorScheme holds hex colors for the named brand slots.
type ColorScheme struct {
	Primary    string `json:"primary,omitempty" yaml:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Accent     string `json:"accent,omitempty" yaml:"accent,omitempty"`
	Negative   string `json:"negative,omitempty" yaml:"negative,omitempty"`
	Neutral    string `json:"neutral,omitempty" yaml:"neutral,omitempty"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
}

// Brand returns the non-empty brand slots in palette order.
func (c ColorScheme) Brand() []string {
	var out []string
	for _, v := range []string{c.Primary, c.Secondary, c.Accent, c.Negative, c.Neutral} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DefaultColorScheme is used for newly created templates.
func DefaultColorScheme() ColorScheme {
	return ColorScheme{
		Primary:    "#2563EB",
		Secondary:  "#10B981",
		Accent:     "#F59E0B",
		Negative:   "#EF4444",
		Neutral:    "#6B7280",
		Text:       "#1F2937",
		Background: "#FFFFFF",
	}
}

type Settings struct {
	PageSize         string      `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	DefaultFont      string      `json:"default_font,omitempty" yaml:"default_font,omitempty"`
	DefaultFontSize  int         `json:"default_font_size,omitempty" yaml:"default_font_size,omitempty"`
	ColorScheme      ColorScheme `json:"color_scheme" yaml:"color_scheme"`
	LogoPath         string      `json:"logo_path,omitempty" yaml:"logo_path,omitempty"`
	EmbeddedLogoPath string      `json:"embedded_logo_path,omitempty" yaml:"embedded_logo_path,omitempty"`
	Variables        Vars        `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// PageDimensions returns the page size in inches.
func (s Settings) PageDimensions() (width, height float64) {
	if s.PageSize == PageSize4x3 {
		return 10, 7.5
	}
	return 10, 5.625
}

type Slide struct {
	Name       string          `json:"name" yaml:"name"`
	Layout     string          `json:"layout,omitempty" yaml:"layout,omitempty"`
	Components []ElementConfig `json:"components" yaml:"components"`
}

// Position is measured in inches from the top-left corner.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is measured in inches.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Default geometry substituted for components that omit it.
var (
	DefaultPosition = Position{X: 0.5, Y: 1.0}
	DefaultSize     = Size{Width: 9.0, Height: 5.0}
)

const (
	DefaultFont     = "Calibri"
	DefaultFontSize = 18
)

// ApplyDefaults fills settings that have a documented default.
func (t *Template) ApplyDefaults() {
	if t.Settings.PageSize != PageSize4x3 {
		t.Settings.PageSize = PageSize16x9
	}
	if t.Settings.DefaultFont == "" {
		t.Settings.DefaultFont = DefaultFont
	}
	if t.Settings.DefaultFontSize <= 0 {
		t.Settings.DefaultFontSize = DefaultFontSize
	}
	for i := range t.Slides {
		if t.Slides[i].Layout == "" {
			t.Slides[i].Layout = "blank"
		}
		if t.Slides[i].Components == nil {
			t.Slides[i].Components = []ElementConfig{}
		}
	}
}

// SafeName turns the template name into a file-name stem.
func (t *Template) SafeName() string {
	name := strings.TrimSpace(t.Metadata.Name)
	if name == "" {
		name = "presentation"
	}
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(name)
}
