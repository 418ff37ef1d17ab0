package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"reportforge/errs"
)

// Aggregation names one output column of a group-by.
type Aggregation struct {
	Column string `json:"column" yaml:"column"`
	Func   string `json:"func" yaml:"func"`
	As     string `json:"as,omitempty" yaml:"as,omitempty"`
}

var aggregateFuncs = map[string]func([]any) any{
	"sum":    func(v []any) any { return Summarize(v).Sum },
	"mean":   func(v []any) any { return nanIfEmpty(Summarize(v), func(s Stats) float64 { return s.Mean }) },
	"avg":    func(v []any) any { return nanIfEmpty(Summarize(v), func(s Stats) float64 { return s.Mean }) },
	"median": func(v []any) any { return nanIfEmpty(Summarize(v), func(s Stats) float64 { return s.Median }) },
	"min":    func(v []any) any { return nanIfEmpty(Summarize(v), func(s Stats) float64 { return s.Min }) },
	"max":    func(v []any) any { return nanIfEmpty(Summarize(v), func(s Stats) float64 { return s.Max }) },
	"std":    func(v []any) any { return Summarize(v).Std },
	"count": func(v []any) any {
		var n int64
		for _, x := range v {
			if !IsNull(x) {
				n++
			}
		}
		return n
	},
	"first": func(v []any) any {
		for _, x := range v {
			if !IsNull(x) {
				return x
			}
		}
		return nil
	},
	"last": func(v []any) any {
		for i := len(v) - 1; i >= 0; i-- {
			if !IsNull(v[i]) {
				return v[i]
			}
		}
		return nil
	},
}

func nanIfEmpty(s Stats, pick func(Stats) float64) any {
	if s.Count == 0 {
		return nil
	}
	return pick(s)
}

// AggregateFuncs lists the supported function names.
func AggregateFuncs() []string {
	names := make([]string, 0, len(aggregateFuncs))
	for n := range aggregateFuncs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type group struct {
	key  []any
	rows [][]any
}

// Aggregate groups rows by the groupBy columns and applies each aggregation.
// Groups come out ordered by key.
func (d *Dataset) Aggregate(groupBy []string, aggs []Aggregation) (*Dataset, error) {
	var missing []string
	for _, c := range groupBy {
		if !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	for _, a := range aggs {
		if !d.HasColumn(a.Column) {
			missing = append(missing, a.Column)
		}
	}
	if len(missing) > 0 {
		return nil, &errs.DataUnavailableError{Columns: missing, Reason: "aggregate columns not found"}
	}

	columns := append([]string(nil), groupBy...)
	fns := make([]func([]any) any, len(aggs))
	for i, a := range aggs {
		fn, ok := aggregateFuncs[strings.ToLower(a.Func)]
		if !ok {
			return nil, fmt.Errorf("unknown aggregate function %q", a.Func)
		}
		fns[i] = fn
		name := a.As
		if name == "" {
			name = a.Column
			for _, c := range columns {
				if c == name {
					name = a.Column + "_" + strings.ToLower(a.Func)
					break
				}
			}
		}
		columns = append(columns, name)
	}

	groups := make(map[string]*group)
	var order []*group
	for _, r := range d.rows {
		key := make([]any, len(groupBy))
		parts := make([]string, len(groupBy))
		for i, c := range groupBy {
			key[i] = r[d.index[c]]
			parts[i] = Format(key[i])
		}
		k := strings.Join(parts, "\x1f")
		g, ok := groups[k]
		if !ok {
			g = &group{key: key}
			groups[k] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	}
	sort.SliceStable(order, func(i, j int) bool {
		for k := range groupBy {
			if c := Compare(order[i].key[k], order[j].key[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	rows := make([][]any, 0, len(order))
	for _, g := range order {
		row := append([]any(nil), g.key...)
		for i, a := range aggs {
			ci := d.index[a.Column]
			vals := make([]any, len(g.rows))
			for j, r := range g.rows {
				vals[j] = r[ci]
			}
			row = append(row, fns[i](vals))
		}
		rows = append(rows, row)
	}
	return &Dataset{columns: columns, index: indexOf(columns), rows: rows}, nil
}

// Stats summarises the numeric values of a column.
type Stats struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"` // sample standard deviation, NaN below two values
}

// Summarize computes Stats over the numeric cells of values.
func Summarize(values []any) Stats {
	var nums []float64
	for _, v := range values {
		if f, ok := Float(v); ok {
			nums = append(nums, f)
		}
	}
	s := Stats{Count: len(nums), Std: math.NaN()}
	if len(nums) == 0 {
		return s
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	for _, f := range nums {
		s.Sum += f
	}
	s.Mean = s.Sum / float64(len(nums))
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		s.Median = sorted[mid]
	}
	if len(nums) > 1 {
		var sq float64
		for _, f := range nums {
			sq += (f - s.Mean) * (f - s.Mean)
		}
		s.Std = math.Sqrt(sq / float64(len(nums)-1))
	}
	return s
}

// ColumnStats returns Stats for one column. It fails when the column is
// missing or holds no numeric values.
func (d *Dataset) ColumnStats(column string) (Stats, error) {
	if !d.HasColumn(column) {
		return Stats{}, &errs.DataUnavailableError{Columns: []string{column}}
	}
	s := Summarize(d.Column(column))
	if s.Count == 0 {
		return s, fmt.Errorf("column %q has no numeric values", column)
	}
	return s, nil
}
