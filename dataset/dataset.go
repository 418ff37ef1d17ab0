// Package dataset is the in-memory table the pipeline reads from. A Dataset
// is never mutated after construction; every operation returns a new one.
package dataset

import (
	"fmt"
	"time"
)

// Dataset is an ordered table of named columns. Cells hold nil, string,
// float64, int64, bool or time.Time.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New copies columns and rows into a Dataset. Short rows are padded with nil
// and long rows truncated.
func New(columns []string, rows [][]any) *Dataset {
	d := &Dataset{
		columns: append([]string(nil), columns...),
		rows:    make([][]any, len(rows)),
	}
	d.buildIndex()
	for i, r := range rows {
		row := make([]any, len(columns))
		copy(row, r)
		d.rows[i] = row
	}
	return d
}

// FromRecords builds a Dataset from row maps using the given column order.
func FromRecords(columns []string, records []map[string]any) *Dataset {
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return &Dataset{columns: append([]string(nil), columns...), index: indexOf(columns), rows: rows}
}

// Empty returns a Dataset with columns but no rows.
func Empty(columns ...string) *Dataset {
	return New(columns, nil)
}

func (d *Dataset) buildIndex() {
	d.index = indexOf(d.columns)
}

func indexOf(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return idx
}

// Columns returns a copy of the column names.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.columns...)
}

// Len is the row count.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.columns)
}

func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[name]
	return ok
}

// ColumnIndex returns -1 for unknown columns.
func (d *Dataset) ColumnIndex(name string) int {
	if d == nil {
		return -1
	}
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []any {
	return append([]any(nil), d.rows[i]...)
}

// Value returns the cell at (row, column).
func (d *Dataset) Value(row int, column string) (any, bool) {
	ci := d.ColumnIndex(column)
	if ci < 0 || row < 0 || row >= d.Len() {
		return nil, false
	}
	return d.rows[row][ci], true
}

// Column returns a copy of one column's values.
func (d *Dataset) Column(name string) []any {
	ci := d.ColumnIndex(name)
	if ci < 0 {
		return nil
	}
	out := make([]any, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[ci]
	}
	return out
}

// Records returns the rows as column→value maps.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, d.Len())
	for i, r := range d.rows {
		rec := make(map[string]any, len(d.columns))
		for j, c := range d.columns {
			rec[c] = r[j]
		}
		out[i] = rec
	}
	return out
}

// Clone deep-copies the table. Cell values are immutable scalars, so copying
// the row slices is enough.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	return New(d.columns, d.rows)
}

// Equal compares columns and cells.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.NumColumns() != o.NumColumns() || d.Len() != o.Len() {
		return false
	}
	for i, c := range d.columns {
		if o.columns[i] != c {
			return false
		}
	}
	for i, r := range d.rows {
		for j, v := range r {
			if !ValuesEqual(v, o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// NumericColumns lists columns whose non-null cells are all numeric, in
// column order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for j, c := range d.columns {
		seen := false
		numeric := true
		for _, r := range d.rows {
			if IsNull(r[j]) {
				continue
			}
			if _, ok := Float(r[j]); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if numeric && seen {
			out = append(out, c)
		}
	}
	return out
}

func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(%d rows x %d columns)", d.Len(), d.NumColumns())
}

// Meta describes where a Dataset came from.
type Meta struct {
	FileName string
	FilePath string
	LoadedAt time.Time
}
