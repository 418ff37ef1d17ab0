package mapper

import (
	"reportforge/dataset"
	"reportforge/errs"
)

// Filter returns the session rows whose column matches one of values, or
// none of them when exclude is set.
func (m *Mapper) Filter(column string, values []any, exclude bool) (*dataset.Dataset, error) {
	if m.data == nil {
		return nil, &errs.DataUnavailableError{Reason: "no dataset loaded"}
	}
	ds, err := m.data.Filter(column, values, exclude)
	if err != nil {
		return nil, errs.Wrap("Mapper", "Filter", err)
	}
	m.logf("filter %s: %d -> %d rows", column, m.data.Len(), ds.Len())
	return ds, nil
}

// Aggregate groups the session dataset.
func (m *Mapper) Aggregate(groupBy []string, aggs []dataset.Aggregation) (*dataset.Dataset, error) {
	if m.data == nil {
		return nil, &errs.DataUnavailableError{Reason: "no dataset loaded"}
	}
	ds, err := m.data.Aggregate(groupBy, aggs)
	return ds, errs.Wrap("Mapper", "Aggregate", err)
}

// ApplyColumnMapping returns the session dataset with renamed columns.
func (m *Mapper) ApplyColumnMapping(mapping map[string]string) *dataset.Dataset {
	if m.data == nil {
		return nil
	}
	return m.data.Rename(mapping)
}

// Narrow replaces the session dataset, e.g. with the result of Filter.
// Reset undoes it.
func (m *Mapper) Narrow(ds *dataset.Dataset) {
	m.logf("session narrowed to %d rows", ds.Len())
	m.data = ds.Clone()
}

// Reset restores the dataset as originally loaded.
func (m *Mapper) Reset() {
	m.data = m.original.Clone()
}

// UniqueValues lists the distinct values of a column.
func (m *Mapper) UniqueValues(column string) ([]any, error) {
	if m.data == nil {
		return nil, &errs.DataUnavailableError{Reason: "no dataset loaded"}
	}
	return m.data.Unique(column)
}

// SummaryStats describes a numeric column.
func (m *Mapper) SummaryStats(column string) (dataset.Stats, error) {
	if m.data == nil {
		return dataset.Stats{}, &errs.DataUnavailableError{Reason: "no dataset loaded"}
	}
	return m.data.ColumnStats(column)
}

// Info is Metadata plus the numeric columns.
type Info struct {
	Metadata
	NumericColumns []string `json:"numeric_columns"`
	Loaded         bool     `json:"loaded"`
}

func (m *Mapper) Info() Info {
	if m.data == nil {
		return Info{}
	}
	return Info{Metadata: m.Metadata(), NumericColumns: m.data.NumericColumns(), Loaded: true}
}
