package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

type columnKind int

const (
	kindUnknown columnKind = iota
	kindInt
	kindFloat
	kindBool
	kindText
)

// FromText builds a Dataset from a header row and raw text rows, inferring
// one type per column: integer, then real, then boolean, else text. Blank
// headers become col_<i>; duplicate headers get a numeric suffix.
func FromText(header []string, rows [][]string) *Dataset {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	columns := normaliseHeaders(header, width)

	kinds := make([]columnKind, width)
	for j := 0; j < width; j++ {
		kinds[j] = inferKind(rows, j)
	}

	out := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, width)
		for j := 0; j < width; j++ {
			if j < len(r) {
				row[j] = convert(strings.TrimSpace(r[j]), kinds[j])
			}
		}
		out[i] = row
	}
	return &Dataset{columns: columns, index: indexOf(columns), rows: out}
}

func normaliseHeaders(header []string, width int) []string {
	columns := make([]string, width)
	used := make(map[string]int, width)
	for j := 0; j < width; j++ {
		name := ""
		if j < len(header) {
			name = strings.TrimSpace(strings.TrimPrefix(header[j], "\ufeff"))
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", j)
		}
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		} else {
			used[name] = 1
		}
		columns[j] = name
	}
	return columns
}

func inferKind(rows [][]string, j int) columnKind {
	kind := kindUnknown
	for _, r := range rows {
		if j >= len(r) {
			continue
		}
		s := strings.TrimSpace(r[j])
		if s == "" {
			continue
		}
		switch {
		case isInt(s):
			if kind == kindUnknown {
				kind = kindInt
			} else if kind == kindBool {
				return kindText
			}
		case isFloat(s):
			if kind == kindUnknown || kind == kindInt {
				kind = kindFloat
			} else if kind == kindBool {
				return kindText
			}
		case isBool(s):
			if kind == kindUnknown {
				kind = kindBool
			} else if kind != kindBool {
				return kindText
			}
		default:
			return kindText
		}
	}
	if kind == kindUnknown {
		return kindText
	}
	return kind
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	if strings.ContainsAny(s, "xXnNiI_") {
		// rejects hex floats, NaN, Inf and digit separators
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

func convert(s string, kind columnKind) any {
	if s == "" {
		return nil
	}
	switch kind {
	case kindInt:
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	case kindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return f
	case kindBool:
		return strings.EqualFold(s, "true")
	}
	return s
}
