// Package mapper holds one loaded dataset per generation session and derives
// per-element data from it. Every derivation returns a new Dataset; the held
// dataset only changes through Load, Narrow or Reset.
package mapper

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"reportforge/dataset"
	"reportforge/errs"
	"reportforge/templates"
)

// ComponentData is what an element renders from. Exactly one field is
// meaningful for a given element type.
type ComponentData struct {
	Variables map[string]string // text
	Dataset   *dataset.Dataset  // table, chart, summary
	Source    map[string]any    // image
}

// Metadata describes the held dataset.
type Metadata struct {
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	Columns     []string  `json:"columns"`
	LoadedAt    time.Time `json:"loaded_at"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
}

// Mapper is not safe for concurrent use; one generation run owns it.
type Mapper struct {
	original *dataset.Dataset
	data     *dataset.Dataset
	meta     dataset.Meta
	declared map[string]string
	loadOpts dataset.LoadOptions
	logger   func(string)
	now      func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger routes mapper logs.
func WithLogger(l func(string)) Option {
	return func(m *Mapper) { m.logger = l }
}

// WithClock replaces time.Now for the date/time variables.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// WithLoadOptions sets how Load reads sources.
func WithLoadOptions(o dataset.LoadOptions) Option {
	return func(m *Mapper) { m.loadOpts = o }
}

// New creates an empty Mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		logger: func(string) {},
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Mapper) logf(format string, args ...interface{}) {
	m.logger(fmt.Sprintf("[mapper] "+format, args...))
}

// Load opens a dataset source and makes it the session dataset.
func (m *Mapper) Load(ctx context.Context, source string) error {
	opts := m.loadOpts
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	ds, meta, err := dataset.Open(ctx, source, opts)
	if err != nil {
		return errs.Wrap("Mapper", "Load", err)
	}
	m.SetDataset(ds, meta)
	return nil
}

// SetDataset installs an already loaded dataset.
func (m *Mapper) SetDataset(ds *dataset.Dataset, meta dataset.Meta) {
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = m.now()
	}
	m.original = ds.Clone()
	m.data = ds.Clone()
	m.meta = meta
	m.logf("dataset ready: %d rows, %d columns", ds.Len(), ds.NumColumns())
}

// Loaded reports whether a dataset is held.
func (m *Mapper) Loaded() bool {
	return m.data != nil
}

// Dataset returns a copy of the session dataset.
func (m *Mapper) Dataset() *dataset.Dataset {
	return m.data.Clone()
}

// SetDeclaredVariables sets template and config variables. They override the
// defaults and metadata but lose to element and run-time variables.
func (m *Mapper) SetDeclaredVariables(vars map[string]string) {
	m.declared = maps.Clone(vars)
}

// Metadata reports on the session dataset.
func (m *Mapper) Metadata() Metadata {
	return Metadata{
		RowCount:    m.data.Len(),
		ColumnCount: m.data.NumColumns(),
		Columns:     m.data.Columns(),
		LoadedAt:    m.meta.LoadedAt,
		FileName:    m.meta.FileName,
		FilePath:    m.meta.FilePath,
	}
}

// VariableDict merges date/time defaults, dataset metadata, declared
// variables and custom, later sources winning.
func (m *Mapper) VariableDict(custom map[string]string) map[string]string {
	now := m.now()
	vars := map[string]string{
		"date":  now.Format("2006-01-02"),
		"month": now.Format("January"),
		"year":  strconv.Itoa(now.Year()),
		"day":   strconv.Itoa(now.Day()),
		"time":  now.Format("15:04"),
	}
	if m.data != nil {
		md := m.Metadata()
		vars["row_count"] = strconv.Itoa(md.RowCount)
		vars["column_count"] = strconv.Itoa(md.ColumnCount)
		vars["columns"] = strings.Join(md.Columns, ", ")
		vars["load_date"] = md.LoadedAt.Format("2006-01-02")
		vars["load_time"] = md.LoadedAt.Format("15:04:05")
		vars["file_name"] = md.FileName
		vars["file_path"] = md.FilePath
	}
	maps.Copy(vars, m.declared)
	maps.Copy(vars, custom)
	return vars
}

// DataForComponent derives what one element needs from the session dataset.
func (m *Mapper) DataForComponent(cfg templates.ElementConfig, vars map[string]string) (ComponentData, error) {
	switch cfg.Type {
	case templates.TypeText:
		custom := map[string]string{}
		if cfg.Text != nil {
			maps.Copy(custom, cfg.Text.Variables)
		}
		maps.Copy(custom, vars)
		return ComponentData{Variables: m.VariableDict(custom)}, nil

	case templates.TypeImage:
		return ComponentData{Source: maps.Clone(cfg.RawSource)}, nil

	case templates.TypeTable:
		if cfg.Table == nil {
			return ComponentData{}, errs.Configf(string(cfg.Type), "data_source", "missing table configuration")
		}
		t := cfg.Table
		ascending := false
		if t.Ascending != nil {
			ascending = *t.Ascending
		}
		ds, err := m.shape(t.Columns, t.ColumnMapping, t.SortBy, ascending, t.TopN)
		return ComponentData{Dataset: ds}, err

	case templates.TypeChart:
		if cfg.Chart == nil {
			return ComponentData{}, errs.Configf(string(cfg.Type), "data_source", "missing chart configuration")
		}
		c := cfg.Chart
		if c.YColumn != "" && m.data != nil && !m.data.HasColumn(c.YColumn) {
			return ComponentData{}, m.missing(c.YColumn)
		}
		// The sort column travels with the plotted ones so top-N can rank by it.
		ds, err := m.shape(nonEmpty(c.XColumn, c.YColumn, c.SeriesColumn, c.SortBy), nil, c.SortBy, c.Ascending, c.TopN)
		return ComponentData{Dataset: ds}, err

	case templates.TypeSummary:
		if cfg.Summary == nil {
			return ComponentData{}, errs.Configf(string(cfg.Type), "data_source", "missing summary configuration")
		}
		s := cfg.Summary
		if m.data == nil && len(s.Metrics) > 0 {
			return ComponentData{}, nil
		}
		// Without metric columns the summary ranks every numeric column, so it
		// gets the whole frame.
		var cols []string
		if len(s.MetricColumns) > 0 {
			cols = append(append(cols, s.MetricColumns...), nonEmpty(s.CompareColumn, s.TimeColumn)...)
		}
		ds, err := m.shape(cols, nil, "", false, 0)
		return ComponentData{Dataset: ds}, err
	}
	return ComponentData{}, &errs.ConfigurationError{Type: string(cfg.Type), Field: "type", Index: -1, Reason: "unknown element type"}
}

// shape applies projection, rename, sort and top-N in that order.
func (m *Mapper) shape(columns []string, mapping map[string]string, sortBy string, ascending bool, topN int) (*dataset.Dataset, error) {
	if m.data == nil {
		return nil, &errs.DataUnavailableError{Reason: "no dataset loaded"}
	}
	ds, missing := m.data.Project(columns)
	if len(columns) > 0 && ds.NumColumns() == 0 {
		return nil, m.missing(columns...)
	}
	if len(missing) > 0 {
		m.logf("columns not found, skipped: %s", strings.Join(missing, ", "))
	}

	ds = ds.Rename(mapping)
	if sortBy != "" {
		key := sortBy
		if !ds.HasColumn(key) {
			if renamed, ok := mapping[sortBy]; ok {
				key = renamed
			}
		}
		var ok bool
		if ds, ok = ds.SortBy(key, ascending); !ok {
			m.logf("sort column %q not found, order kept", sortBy)
		}
	}
	if topN > 0 {
		ds = ds.Head(topN)
	}
	return ds, nil
}

func (m *Mapper) missing(columns ...string) error {
	e := &errs.DataUnavailableError{Source: m.meta.FileName, Columns: columns}
	if len(columns) > 0 {
		e.Suggestion = errs.Suggest(columns[0], m.data.Columns())
	}
	return e
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
