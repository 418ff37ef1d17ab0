package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reportforge/errs"
)

// ElementConfig is one component of a slide. Exactly one of the variant
// pointers is set for a recognised Type; unknown types keep only RawSource.
type ElementConfig struct {
	Type     ElementType
	Position *Position
	Size     *Size

	Text    *TextConfig
	Table   *TableConfig
	Image   *ImageConfig
	Chart   *ChartConfig
	Summary *SummaryConfig

	// RawSource is the data_source object as written in the template.
	RawSource map[string]any

	// DecodeErr is set when a data_source or style field has the wrong type.
	// The element is refused when created; the rest of the template loads.
	DecodeErr *errs.ConfigurationError
}

// ResolvedPosition returns the position or its default.
func (c ElementConfig) ResolvedPosition() Position {
	if c.Position == nil {
		return DefaultPosition
	}
	return *c.Position
}

// ResolvedSize returns the size or its default.
func (c ElementConfig) ResolvedSize() Size {
	if c.Size == nil {
		return DefaultSize
	}
	return *c.Size
}

// TextConfig
type TextConfig struct {
	TextSource
	TextStyle
}

type TextSource struct {
	Content   string `json:"content,omitempty"`
	Variables Vars   `json:"variables,omitempty"`
}

// Vars maps variable names to text. Numbers and booleans are accepted and
// kept as written, so {year: 2024} reads as "2024".
type Vars map[string]string

func (v *Vars) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	out := make(Vars, len(raw))
	for k, val := range raw {
		switch x := val.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = x
		case json.Number:
			out[k] = x.String()
		case bool:
			out[k] = strconv.FormatBool(x)
		default:
			return fmt.Errorf("variable %q must be a string, number or boolean", k)
		}
	}
	*v = out
	return nil
}

type TextStyle struct {
	Font   string `json:"font,omitempty"`
	Size   int    `json:"size,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Color  string `json:"color,omitempty"`
	Align  string `json:"align,omitempty"`
	Fill   string `json:"fill,omitempty"`

	// long-form aliases used by older templates
	FontName  string `json:"font_name,omitempty"`
	FontSize  int    `json:"font_size,omitempty"`
	Alignment string `json:"alignment,omitempty"`
}

// FontOr returns the configured font name or def.
func (s TextStyle) FontOr(def string) string {
	switch {
	case s.Font != "":
		return s.Font
	case s.FontName != "":
		return s.FontName
	}
	return def
}

// SizeOr returns the configured point size or def.
func (s TextStyle) SizeOr(def int) int {
	switch {
	case s.Size > 0:
		return s.Size
	case s.FontSize > 0:
		return s.FontSize
	}
	return def
}

// AlignTag returns align or its alias.
func (s TextStyle) AlignTag() string {
	if s.Align != "" {
		return s.Align
	}
	return s.Alignment
}

// TableConfig
type TableConfig struct {
	TableSource
	TableStyle
}

type TableSource struct {
	Columns       []string          `json:"columns,omitempty"`
	FilterColumns []string          `json:"filter_columns,omitempty"`
	ColumnMapping map[string]string `json:"column_mapping,omitempty"`
	SortBy        string            `json:"sort_by,omitempty"`
	Ascending     *bool             `json:"ascending,omitempty"`
	TopN          int               `json:"top_n,omitempty"`
	MaxRows       int               `json:"max_rows,omitempty"`
}

type TableStyle struct {
	HeaderColor     string            `json:"header_color,omitempty"`
	HeaderTextColor string            `json:"header_text_color,omitempty"`
	RowColor1       string            `json:"row_color_1,omitempty"`
	RowColor2       string            `json:"row_color_2,omitempty"`
	TextColor       string            `json:"text_color,omitempty"`
	FontSize        int               `json:"font_size,omitempty"`
	HeaderFontSize  int               `json:"header_font_size,omitempty"`
	NumberFormat    string            `json:"number_format,omitempty"`
	Decimals        *int              `json:"decimals,omitempty"`
	CurrencySymbol  string            `json:"currency_symbol,omitempty"`
	ColumnFormats   map[string]string `json:"column_formats,omitempty"`
}

// ImageConfig
type ImageConfig struct {
	ImageSource
	ImageStyle
}

// Image source types
const (
	ImageFile                 = "file"
	ImageURL                  = "url"
	ImageTemplateLogo         = "template_logo"
	ImageTemplateEmbeddedLogo = "template_embedded_logo"
)

type ImageSource struct {
	Path string `json:"path,omitempty"`
	Type string `json:"type,omitempty"`
}

type ImageStyle struct {
	BorderWidth    float64  `json:"border_width,omitempty"`
	BorderColor    string   `json:"border_color,omitempty"`
	CornerRadius   float64  `json:"corner_radius,omitempty"`
	Opacity        *float64 `json:"opacity,omitempty"`
	MaintainAspect *bool    `json:"maintain_aspect,omitempty"`
}

// ChartConfig
type ChartConfig struct {
	ChartSource
	ChartStyle
}

type ChartSource struct {
	ChartType    string `json:"chart_type,omitempty"`
	XColumn      string `json:"x_column,omitempty"`
	YColumn      string `json:"y_column,omitempty"`
	SeriesColumn string `json:"series_column,omitempty"`
	SortBy       string `json:"sort_by,omitempty"`
	Ascending    bool   `json:"ascending,omitempty"`
	TopN         int    `json:"top_n,omitempty"`
}

// ColorSpec is either a list of hex colors or a single palette keyword
// ("brand", "default") written as a bare string.
type ColorSpec []string

func (c *ColorSpec) UnmarshalJSON(data []byte) error {
	var keyword string
	if err := json.Unmarshal(data, &keyword); err == nil {
		*c = ColorSpec{keyword}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// Keyword returns the palette keyword when the colors are a single non-hex word.
func (c ColorSpec) Keyword() string {
	if len(c) == 1 && !strings.HasPrefix(c[0], "#") {
		switch k := strings.ToLower(c[0]); k {
		case "brand", "default":
			return k
		}
	}
	return ""
}

type ChartStyle struct {
	Title          string    `json:"title,omitempty"`
	XLabel         string    `json:"x_label,omitempty"`
	YLabel         string    `json:"y_label,omitempty"`
	Colors         ColorSpec `json:"colors,omitempty"`
	ColorScheme    string    `json:"color_scheme,omitempty"`
	LegendPosition string    `json:"legend_position,omitempty"`
	ShowValues     bool      `json:"show_values,omitempty"`
	Grid           *bool     `json:"grid,omitempty"`
	FontSize       int       `json:"font_size,omitempty"`
	DPI            float64   `json:"dpi,omitempty"`
}

// SummaryConfig
type SummaryConfig struct {
	SummarySource
	SummaryStyle
}

type SummarySource struct {
	InsightTypes  []string       `json:"insight_types,omitempty"`
	MetricColumns []string       `json:"metric_columns,omitempty"`
	CompareColumn string         `json:"compare_column,omitempty"`
	TimeColumn    string         `json:"time_column,omitempty"`
	Metrics       map[string]any `json:"metrics,omitempty"`
}

type SummaryStyle struct {
	MaxItems  int    `json:"max_items,omitempty"`
	Layout    string `json:"layout,omitempty"`
	ShowIcons bool   `json:"show_icons,omitempty"`
	Title     string `json:"title,omitempty"`
	FontSize  int    `json:"font_size,omitempty"`
	Color     string `json:"color,omitempty"`
	BoxColor  string `json:"box_color,omitempty"`

	// HighlightColor outlines callout boxes
	HighlightColor string `json:"highlight_color,omitempty"`
}

type elementWire struct {
	Type       ElementType     `json:"type"`
	Position   *Position       `json:"position,omitempty"`
	Size       *Size           `json:"size,omitempty"`
	DataSource json.RawMessage `json:"data_source,omitempty"`
	Style      json.RawMessage `json:"style,omitempty"`

	// accepted at the top level for templates written by hand
	Content   *string `json:"content,omitempty"`
	Variables Vars    `json:"variables,omitempty"`
	ChartType string  `json:"chart_type,omitempty"`
}

// UnmarshalJSON decodes the common fields, then the variant config. Source
// and style fields are accepted in either object; the object they belong to
// wins when both set a field. A variant field of the wrong type lands in
// DecodeErr instead of failing the whole template.
func (c *ElementConfig) UnmarshalJSON(data []byte) error {
	var w elementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = ElementConfig{Type: w.Type, Position: w.Position, Size: w.Size}
	if len(w.DataSource) > 0 && string(w.DataSource) != "null" {
		if err := json.Unmarshal(w.DataSource, &c.RawSource); err != nil {
			return err
		}
	}

	decode := func(source, style any) error {
		for _, raw := range []json.RawMessage{w.Style, w.DataSource} {
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, source); err != nil {
					return err
				}
			}
		}
		for _, raw := range []json.RawMessage{w.DataSource, w.Style} {
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, style); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var err error
	switch w.Type {
	case TypeText:
		c.Text = &TextConfig{}
		err = decode(&c.Text.TextSource, &c.Text.TextStyle)
		if w.Content != nil && c.Text.Content == "" {
			c.Text.Content = *w.Content
		}
		if c.Text.Variables == nil && w.Variables != nil {
			c.Text.Variables = w.Variables
		}
	case TypeTable:
		c.Table = &TableConfig{}
		err = decode(&c.Table.TableSource, &c.Table.TableStyle)
	case TypeImage:
		c.Image = &ImageConfig{}
		err = decode(&c.Image.ImageSource, &c.Image.ImageStyle)
	case TypeChart:
		c.Chart = &ChartConfig{}
		err = decode(&c.Chart.ChartSource, &c.Chart.ChartStyle)
		if c.Chart.ChartType == "" {
			c.Chart.ChartType = w.ChartType
		}
	case TypeSummary:
		c.Summary = &SummaryConfig{}
		err = decode(&c.Summary.SummarySource, &c.Summary.SummaryStyle)
	}
	if err != nil {
		c.DecodeErr = decodeError(w.Type, err)
	}
	return nil
}

func decodeError(t ElementType, err error) *errs.ConfigurationError {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return errs.Configf(string(t), te.Field, "%s must be %s, got %s", te.Field, te.Type, te.Value)
	}
	return errs.Configf(string(t), "", "%v", err)
}

// MarshalJSON writes the canonical {type, position, size, data_source, style}
// shape.
func (c ElementConfig) MarshalJSON() ([]byte, error) {
	var source, style any
	switch {
	case c.Text != nil:
		source, style = c.Text.TextSource, c.Text.TextStyle
	case c.Table != nil:
		source, style = c.Table.TableSource, c.Table.TableStyle
	case c.Image != nil:
		source, style = c.Image.ImageSource, c.Image.ImageStyle
	case c.Chart != nil:
		source, style = c.Chart.ChartSource, c.Chart.ChartStyle
	case c.Summary != nil:
		source, style = c.Summary.SummarySource, c.Summary.SummaryStyle
	default:
		if c.RawSource != nil {
			source = c.RawSource
		}
	}

	w := elementWire{Type: c.Type, Position: c.Position, Size: c.Size}
	var err error
	if source != nil {
		if w.DataSource, err = json.Marshal(source); err != nil {
			return nil, err
		}
	}
	if style != nil {
		if w.Style, err = json.Marshal(style); err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}
