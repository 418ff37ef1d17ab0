package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"reportforge/errs"
)

const salesTemplateJSON = `{
  "metadata": {"name": "Quarterly Sales", "author": "Finance", "version": "2.1"},
  "settings": {"page_size": "4:3", "color_scheme": {"primary": "#112233", "accent": "#445566"}},
  "slides": [
    {"name": "Cover", "layout": "title", "components": [
      {"type": "text", "position": {"x": 1, "y": 1}, "size": {"width": 8, "height": 1},
       "data_source": {"content": "Report for {company}"}, "style": {"size": 32, "bold": true}}
    ]},
    {"name": "Numbers", "layout": "content", "components": [
      {"type": "table", "data_source": {"columns": ["Region", "Revenue"], "sort_by": "Revenue", "ascending": false},
       "style": {"number_format": "currency"}},
      {"type": "chart", "chart_type": "bar", "position": {"x": 0.5, "y": 3}, "size": {"width": 4, "height": 2},
       "data_source": {"x_column": "Region", "y_column": "Revenue", "top_n": 3}, "style": {"colors": ["#ff0000"]}}
    ]},
    {"name": "Empty", "components": []}
  ]
}`

func TestParse_TypedConfigs(t *testing.T) {
	tmpl, warnings, err := Parse([]byte(salesTemplateJSON), FormatJSON, ValidateOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tmpl.Slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(tmpl.Slides))
	}

	text := tmpl.Slides[0].Components[0]
	if text.Text == nil || text.Text.Content != "Report for {company}" || text.Text.Size != 32 || !text.Text.Bold {
		t.Errorf("text config not decoded: %+v", text.Text)
	}

	table := tmpl.Slides[1].Components[0]
	if table.Table == nil || table.Table.SortBy != "Revenue" || table.Table.Ascending == nil || *table.Table.Ascending {
		t.Errorf("table config not decoded: %+v", table.Table)
	}
	if table.Position != nil || table.ResolvedSize() != DefaultSize {
		t.Errorf("table geometry should default")
	}

	chart := tmpl.Slides[1].Components[1]
	if chart.Chart == nil || chart.Chart.ChartType != "bar" || chart.Chart.TopN != 3 || chart.Chart.Colors[0] != "#ff0000" {
		t.Errorf("chart config not decoded: %+v", chart.Chart)
	}

	// table has no position and no size
	if len(warnings) != 2 {
		t.Errorf("expected 2 geometry warnings, got %v", warnings)
	}
	if tmpl.Slides[2].Layout != "blank" {
		t.Errorf("missing layout should default to blank")
	}
	if w, h := tmpl.Settings.PageDimensions(); w != 10 || h != 7.5 {
		t.Errorf("4:3 page should be 10x7.5, got %gx%g", w, h)
	}
}

func TestValidateDocument_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing slides", `{"metadata": {"name": "x"}, "settings": {}}`, `missing required key "slides"`},
		{"missing settings", `{"metadata": {"name": "x"}, "slides": []}`, `missing required key "settings"`},
		{"empty name", `{"metadata": {"name": ""}, "settings": {}, "slides": [{"components": []}]}`, "metadata.name"},
		{"no slides", `{"metadata": {"name": "x"}, "settings": {}, "slides": []}`, "at least one slide"},
		{"no components", `{"metadata": {"name": "x"}, "settings": {}, "slides": [{"name": "a"}]}`, "no components list"},
		{"unknown type", `{"metadata": {"name": "x"}, "settings": {}, "slides": [{"components": [{"type": "chrt"}]}]}`, `did you mean "chart"`},
		{"zero size", `{"metadata": {"name": "x"}, "settings": {}, "slides": [{"components": [{"type": "text", "size": {"width": 0, "height": 1}}]}]}`, "greater than 0"},
		{"negative position", `{"metadata": {"name": "x"}, "settings": {}, "slides": [{"components": [{"type": "text", "position": {"x": -1, "y": 0}}]}]}`, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.doc), FormatJSON, ValidateOptions{})
			var se *errs.StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected StructuralError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateDocument_LenientUnknownType(t *testing.T) {
	doc := `{"metadata": {"name": "x"}, "settings": {}, "slides": [{"components": [{"type": "gauge"}, {"type": "text"}]}]}`
	tmpl, warnings, err := Parse([]byte(doc), FormatJSON, ValidateOptions{Lenient: true})
	if err != nil {
		t.Fatalf("lenient parse failed: %v", err)
	}
	if tmpl.Slides[0].Components[0].Type != "gauge" {
		t.Errorf("unknown type should be preserved")
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "gauge") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about gauge, got %v", warnings)
	}
}

func TestParse_YAML(t *testing.T) {
	doc := `
metadata:
  name: YAML Report
settings:
  page_size: "16:9"
slides:
  - name: One
    layout: content
    components:
      - type: summary
        position: {x: 1, y: 1}
        size: {width: 5, height: 3}
        data_source:
          insight_types: [key_metrics, trends]
          metric_columns: [Revenue]
        style:
          layout: numbered
          max_items: 3
`
	tmpl, _, err := Parse([]byte(doc), FormatYAML, ValidateOptions{})
	if err != nil {
		t.Fatalf("Parse YAML failed: %v", err)
	}
	s := tmpl.Slides[0].Components[0].Summary
	if s == nil || len(s.InsightTypes) != 2 || s.Layout != "numbered" || s.MaxItems != 3 {
		t.Errorf("summary config not decoded: %+v", s)
	}
}

func TestParse_ScalarVariables(t *testing.T) {
	doc := `
metadata:
  name: Vars
settings:
  variables: {year: 2024, growth: 1.5, audited: true, owner: Finance}
slides:
  - name: One
    components:
      - type: text
        data_source:
          content: "{owner} {year} Q{quarter}"
          variables: {quarter: 3}
`
	tmpl, _, err := Parse([]byte(doc), FormatYAML, ValidateOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := map[string]string{"year": "2024", "growth": "1.5", "audited": "true", "owner": "Finance"}
	for k, v := range want {
		if got := tmpl.Settings.Variables[k]; got != v {
			t.Errorf("settings variable %s = %q, want %q", k, got, v)
		}
	}
	text := tmpl.Slides[0].Components[0]
	if text.DecodeErr != nil {
		t.Fatalf("unexpected decode error: %v", text.DecodeErr)
	}
	if got := text.Text.Variables["quarter"]; got != "3" {
		t.Errorf("element variable quarter = %q, want \"3\"", got)
	}
}

func TestParse_WrongFieldTypeStaysOnElement(t *testing.T) {
	doc := `{
  "metadata": {"name": "Typed"},
  "settings": {},
  "slides": [{"name": "One", "components": [
    {"type": "chart", "data_source": {"x_column": "Region", "y_column": "Revenue", "top_n": "5"}},
    {"type": "text", "data_source": {"content": "Still here", "variables": {"nested": {"a": 1}}}},
    {"type": "table", "data_source": {"columns": ["Region"]}}
  ]}]
}`
	tmpl, _, err := Parse([]byte(doc), FormatJSON, ValidateOptions{})
	if err != nil {
		t.Fatalf("template should load, got %v", err)
	}
	comps := tmpl.Slides[0].Components

	tests := []struct {
		name  string
		cfg   ElementConfig
		field string
	}{
		{"string top_n", comps[0], "top_n"},
		{"nested variable", comps[1], ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.DecodeErr == nil {
				t.Fatal("expected a decode error on the element")
			}
			if errs.KindOf(tt.cfg.DecodeErr) != errs.KindConfiguration {
				t.Errorf("kind = %s, want configuration", errs.KindOf(tt.cfg.DecodeErr))
			}
			if tt.cfg.DecodeErr.Field != tt.field {
				t.Errorf("field = %q, want %q", tt.cfg.DecodeErr.Field, tt.field)
			}
		})
	}
	if comps[2].DecodeErr != nil || comps[2].Table == nil {
		t.Errorf("table should decode cleanly: %+v", comps[2])
	}
}

func TestSaveLoadListDescribe(t *testing.T) {
	dir := t.TempDir()
	tmpl := NewEmpty("Board Pack", "monthly board deck")
	slide := tmpl.AddSlide("KPIs", "content")
	slide.Components = append(slide.Components, ElementConfig{
		Type:     TypeChart,
		Position: &Position{X: 1, Y: 1},
		Size:     &Size{Width: 6, Height: 4},
		Chart:    &ChartConfig{ChartSource: ChartSource{ChartType: "pie", XColumn: "Region", YColumn: "Revenue"}},
	})

	if _, err := Validate(tmpl, ValidateOptions{}); err != nil {
		t.Fatalf("new template should validate: %v", err)
	}

	for _, name := range []string{"board.yaml", "board.json"} {
		path := filepath.Join(dir, name)
		if err := Save(tmpl, path); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		back, _, err := Load(path, ValidateOptions{})
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		c := back.Slides[1].Components[0]
		if c.Chart == nil || c.Chart.ChartType != "pie" || c.Size.Width != 6 {
			t.Errorf("%s: chart lost in round trip: %+v", name, c)
		}
		if back.Settings.ColorScheme.Primary != "#2563EB" {
			t.Errorf("%s: color scheme lost", name)
		}
	}

	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)
	var skipped []string
	list, err := List(dir, func(p string, err error) { skipped = append(skipped, p) })
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || len(skipped) != 1 {
		t.Errorf("expected 2 listings and 1 skip, got %v / %v", list, skipped)
	}

	info := Describe(tmpl)
	if info.SlideCount != 2 || info.ComponentCounts["chart"] != 1 || info.ComponentCount != 1 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.json"), ValidateOptions{})
	if errs.KindOf(err) != errs.KindIO {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestLayoutIndex(t *testing.T) {
	cases := map[string]int{"title": 0, "Title_Content": 1, "comparison": 4, "content": 6, "weird": 5, "": 5}
	for tag, want := range cases {
		if got := LayoutIndex(tag); got != want {
			t.Errorf("LayoutIndex(%q) = %d, want %d", tag, got, want)
		}
	}
}

func TestSafeName(t *testing.T) {
	tmpl := &Template{Metadata: Metadata{Name: "Q1 Sales/EMEA"}}
	if got := tmpl.SafeName(); got != "Q1_Sales_EMEA" {
		t.Errorf("SafeName = %q", got)
	}
}

// Feature: template-validation, Property 1: only the five element types pass strict validation
func TestProperty1_TypeTagValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("strict validation accepts exactly the known tags", prop.ForAll(
		func(tag string) bool {
			doc := map[string]any{
				"metadata": map[string]any{"name": "p"},
				"settings": map[string]any{},
				"slides": []any{map[string]any{"components": []any{
					map[string]any{"type": tag},
				}}},
			}
			_, err := ValidateDocument(doc, ValidateOptions{})
			return (err == nil) == ElementType(tag).IsValid()
		},
		gen.OneGenOf(
			gen.OneConstOf("text", "table", "image", "chart", "summary"),
			gen.AlphaString(),
		),
	))

	properties.TestingRun(t)
}

// Feature: template-validation, Property 2: geometry bounds
func TestProperty2_GeometryBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("size must be positive and position non-negative", prop.ForAll(
		func(x, y, w, h float64) bool {
			doc := map[string]any{
				"metadata": map[string]any{"name": "p"},
				"settings": map[string]any{},
				"slides": []any{map[string]any{"components": []any{
					map[string]any{
						"type":     "text",
						"position": map[string]any{"x": x, "y": y},
						"size":     map[string]any{"width": w, "height": h},
					},
				}}},
			}
			_, err := ValidateDocument(doc, ValidateOptions{})
			valid := x >= 0 && y >= 0 && w > 0 && h > 0
			return (err == nil) == valid
		},
		gen.Float64Range(-5, 10),
		gen.Float64Range(-5, 10),
		gen.Float64Range(-5, 10),
		gen.Float64Range(-5, 10),
	))

	properties.TestingRun(t)
}
