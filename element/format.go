package element

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"reportforge/dataset"
)

// Number format kinds accepted by tables.
const (
	FormatPlain      = "plain"
	FormatThousands  = "thousands"
	FormatPercentage = "percentage"
	FormatCurrency   = "currency"
	FormatFixed      = "fixed"
	FormatDecimal    = "decimal" // alias of fixed
)

var numberFormats = map[string]bool{
	"": true, FormatPlain: true, FormatThousands: true, FormatPercentage: true,
	FormatCurrency: true, FormatFixed: true, FormatDecimal: true,
}

var printer = message.NewPrinter(language.English)

// grouped formats v with thousands separators and a fixed number of decimals.
func grouped(v float64, decimals int) string {
	return printer.Sprintf("%.*f", decimals, v)
}

// NumberFormat renders numeric cells.
type NumberFormat struct {
	Kind     string
	Decimals int // < 0 means the kind's default
	Currency string
}

func (f NumberFormat) decimals(def int) int {
	if f.Decimals < 0 {
		return def
	}
	return f.Decimals
}

// Format renders v. Non-numeric values use their plain text form and nulls
// render empty.
func (f NumberFormat) Format(v any) string {
	if dataset.IsNull(v) {
		return ""
	}
	x, ok := dataset.Float(v)
	if !ok || math.IsInf(x, 0) {
		return dataset.Format(v)
	}
	isInt := false
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		isInt = true
	}

	switch strings.ToLower(f.Kind) {
	case FormatPlain:
		if isInt {
			return dataset.Format(v)
		}
		return fixed(x, f.decimals(2))
	case FormatThousands:
		if isInt {
			return grouped(x, 0)
		}
		return grouped(x, f.decimals(2))
	case FormatPercentage:
		return grouped(x, f.decimals(1)) + "%"
	case FormatCurrency:
		sym := f.Currency
		if sym == "" {
			sym = "$"
		}
		if x < 0 {
			return "-" + sym + grouped(-x, f.decimals(0))
		}
		return sym + grouped(x, f.decimals(0))
	case FormatFixed, FormatDecimal:
		return fixed(x, f.decimals(2))
	default:
		if isInt {
			return grouped(x, 0)
		}
		return grouped(x, f.decimals(2))
	}
}

func fixed(x float64, decimals int) string {
	return strconv.FormatFloat(x, 'f', decimals, 64)
}
