package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reportforge/errs"
)

// Format is the on-disk encoding of a template.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension; JSON is the default.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes, validates and types a template document.
func Parse(data []byte, format Format, opts ValidateOptions) (*Template, []Warning, error) {
	var doc any
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &doc)
		doc = normalise(doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, nil, &errs.StructuralError{Reason: fmt.Sprintf("cannot decode %s: %v", format, err)}
	}

	warnings, err := ValidateDocument(doc, opts)
	if err != nil {
		return nil, warnings, err
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, warnings, &errs.StructuralError{Reason: err.Error()}
	}
	var t Template
	if err := json.Unmarshal(canonical, &t); err != nil {
		return nil, warnings, &errs.StructuralError{Reason: err.Error()}
	}
	t.ApplyDefaults()
	return &t, warnings, nil
}

// Load reads and validates a template file.
func Load(path string, opts ValidateOptions) (*Template, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &errs.IOError{Op: "read template", Path: path, Err: err}
	}
	return Parse(data, FormatFor(path), opts)
}

// Validate runs the structural checks on an in-memory template.
func Validate(t *Template, opts ValidateOptions) ([]Warning, error) {
	doc, err := toDocument(t)
	if err != nil {
		return nil, &errs.StructuralError{Reason: err.Error()}
	}
	return ValidateDocument(doc, opts)
}

func toDocument(t *Template) (any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var doc any
	err = json.Unmarshal(data, &doc)
	return doc, err
}

// Marshal encodes t in the given format.
func Marshal(t *Template, format Format) ([]byte, error) {
	if format != FormatYAML {
		return json.MarshalIndent(t, "", "  ")
	}
	doc, err := toDocument(t)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Save writes t to path, choosing the format from the extension.
func Save(t *Template, path string) error {
	data, err := Marshal(t, FormatFor(path))
	if err != nil {
		return errs.WrapOperation("encode template", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &errs.IOError{Op: "create template dir", Path: dir, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &errs.IOError{Op: "write template", Path: path, Err: err}
	}
	return nil
}

// Listing summarises one template file in a directory.
type Listing struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Slides      int    `json:"slides"`
}

// List loads every template in dir, sorted by name. Files that fail to load
// are reported through skip and left out.
func List(dir string, skip func(path string, err error)) ([]Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &errs.IOError{Op: "list templates", Path: dir, Err: err}
	}
	var out []Listing
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, _, err := Load(path, ValidateOptions{Lenient: true})
		if err != nil {
			if skip != nil {
				skip(path, err)
			}
			continue
		}
		out = append(out, Listing{
			Name:        t.Metadata.Name,
			Description: t.Metadata.Description,
			Path:        path,
			Slides:      len(t.Slides),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Info describes a template's contents.
type Info struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Author          string         `json:"author"`
	Version         string         `json:"version"`
	PageSize        string         `json:"page_size"`
	SlideCount      int            `json:"slide_count"`
	ComponentCount  int            `json:"component_count"`
	ComponentCounts map[string]int `json:"component_counts"`
}

// Describe counts slides and components by type.
func Describe(t *Template) Info {
	info := Info{
		Name:            t.Metadata.Name,
		Description:     t.Metadata.Description,
		Author:          t.Metadata.Author,
		Version:         t.Metadata.Version,
		PageSize:        t.Settings.PageSize,
		SlideCount:      len(t.Slides),
		ComponentCounts: make(map[string]int),
	}
	for _, s := range t.Slides {
		for _, c := range s.Components {
			info.ComponentCount++
			info.ComponentCounts[string(c.Type)]++
		}
	}
	return info
}

// NewEmpty returns a valid template with one blank title slide.
func NewEmpty(name, description string) *Template {
	t := &Template{
		Metadata: Metadata{
			Name:        name,
			Description: description,
			Version:     "1.0",
			CreatedDate: time.Now().Format("2006-01-02"),
		},
		Settings: Settings{
			PageSize:        PageSize16x9,
			DefaultFont:     DefaultFont,
			DefaultFontSize: DefaultFontSize,
			ColorScheme:     DefaultColorScheme(),
		},
	}
	t.AddSlide("Title", "title")
	return t
}

// AddSlide appends an empty slide and returns it.
func (t *Template) AddSlide(name, layout string) *Slide {
	if layout == "" {
		layout = "blank"
	}
	t.Slides = append(t.Slides, Slide{Name: name, Layout: layout, Components: []ElementConfig{}})
	return &t.Slides[len(t.Slides)-1]
}

// normalise converts YAML maps with non-string keys into JSON-compatible maps.
func normalise(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = normalise(val)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = normalise(val)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalise(x[i])
		}
		return x
	}
	return v
}
