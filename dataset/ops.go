package dataset

import (
	"sort"

	"reportforge/errs"
)

// Project keeps the requested columns that exist, in request order, and
// reports the ones that do not. No columns means all columns.
func (d *Dataset) Project(columns []string) (*Dataset, []string) {
	if len(columns) == 0 {
		return d.Clone(), nil
	}
	var keep, missing []string
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			continue
		}
		seen[c] = true
		if d.HasColumn(c) {
			keep = append(keep, c)
		} else {
			missing = append(missing, c)
		}
	}

	rows := make([][]any, d.Len())
	for i, r := range d.rows {
		row := make([]any, len(keep))
		for j, c := range keep {
			row[j] = r[d.index[c]]
		}
		rows[i] = row
	}
	return &Dataset{columns: keep, index: indexOf(keep), rows: rows}, missing
}

// Rename maps old column names to new ones. Unmapped columns keep their name.
func (d *Dataset) Rename(mapping map[string]string) *Dataset {
	out := d.Clone()
	if len(mapping) == 0 {
		return out
	}
	for i, c := range out.columns {
		if n, ok := mapping[c]; ok && n != "" {
			out.columns[i] = n
		}
	}
	out.buildIndex()
	return out
}

// SortBy orders rows by one column with a stable sort. Nulls go last in both
// directions. An unknown column returns an unchanged copy and false.
func (d *Dataset) SortBy(column string, ascending bool) (*Dataset, bool) {
	ci := d.ColumnIndex(column)
	out := d.Clone()
	if ci < 0 {
		return out, false
	}
	sort.SliceStable(out.rows, func(i, j int) bool {
		a, b := out.rows[i][ci], out.rows[j][ci]
		an, bn := IsNull(a), IsNull(b)
		if an || bn {
			return !an && bn
		}
		c := Compare(a, b)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return out, true
}

// Head keeps the first n rows. n <= 0 keeps everything.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= d.Len() {
		return d.Clone()
	}
	return New(d.columns, d.rows[:n])
}

// Filter keeps rows whose column value is one of values, or is not one of
// them when exclude is set.
func (d *Dataset) Filter(column string, values []any, exclude bool) (*Dataset, error) {
	ci := d.ColumnIndex(column)
	if ci < 0 {
		return nil, &errs.DataUnavailableError{Columns: []string{column}, Reason: "filter column not found"}
	}
	var rows [][]any
	for _, r := range d.rows {
		match := false
		for _, v := range values {
			if ValuesEqual(r[ci], v) {
				match = true
				break
			}
		}
		if match != exclude {
			rows = append(rows, r)
		}
	}
	return New(d.columns, rows), nil
}

// DropMissing removes rows with a null in any of the given columns. Unknown
// columns are ignored.
func (d *Dataset) DropMissing(columns ...string) *Dataset {
	var idx []int
	for _, c := range columns {
		if ci := d.ColumnIndex(c); ci >= 0 {
			idx = append(idx, ci)
		}
	}
	var rows [][]any
	for _, r := range d.rows {
		keep := true
		for _, ci := range idx {
			if IsNull(r[ci]) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return New(d.columns, rows)
}

// Unique lists distinct non-null values of a column in first-seen order.
func (d *Dataset) Unique(column string) ([]any, error) {
	ci := d.ColumnIndex(column)
	if ci < 0 {
		return nil, &errs.DataUnavailableError{Columns: []string{column}}
	}
	var out []any
	for _, r := range d.rows {
		v := r[ci]
		if IsNull(v) {
			continue
		}
		dup := false
		for _, u := range out {
			if ValuesEqual(u, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out, nil
}

// MissingColumns returns the names not present in d.
func (d *Dataset) MissingColumns(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if c != "" && !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
