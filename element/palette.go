package element

import (
	"fmt"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"reportforge/canvas"
	"reportforge/templates"
)

var (
	// BrandFallback is used for "brand" when the template has no color scheme.
	BrandFallback = []string{"#2563EB", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899"}
	// FallbackPalette is the last resort of ResolvePalette.
	FallbackPalette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}
)

// BackendPalette is the chart library's default color cycle.
func BackendPalette() []string {
	out := make([]string, 0, len(chart.DefaultColors))
	for _, c := range chart.DefaultColors {
		out = append(out, fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	}
	return out
}

// ResolvePalette picks chart colors: an explicit list, then the template
// brand colors when "brand" is requested, then the backend cycle, then the
// fallback. Entries that are not hex colors are dropped, so a list of only
// color names falls through to the next source. The result is never empty.
func ResolvePalette(explicit templates.ColorSpec, scheme string, settings *templates.Settings, backend []string) []string {
	keyword := explicit.Keyword()
	if keyword == "" {
		if colors := hexColors(explicit); len(colors) > 0 {
			return colors
		}
	}
	if keyword == "brand" || scheme == "brand" {
		if settings != nil {
			if brand := hexColors(settings.ColorScheme.Brand()); len(brand) > 0 {
				return brand
			}
		}
		return append([]string(nil), BrandFallback...)
	}
	if colors := hexColors(backend); len(colors) > 0 {
		return colors
	}
	return append([]string(nil), FallbackPalette...)
}

// hexColors keeps the parseable entries as "#RRGGBB" strings. Six-digit
// entries that already carry '#' are kept verbatim.
func hexColors(in []string) []string {
	var out []string
	for _, s := range in {
		c, err := canvas.ParseColor(s)
		if err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) != 7 || s[0] != '#' {
			s = "#" + c.Hex()
		}
		out = append(out, s)
	}
	return out
}

// invalidColors lists the entries of spec that hexColors would drop.
func invalidColors(spec templates.ColorSpec) []string {
	if spec.Keyword() != "" {
		return nil
	}
	var bad []string
	for _, s := range spec {
		if s == "" {
			continue
		}
		if _, err := canvas.ParseColor(s); err != nil {
			bad = append(bad, s)
		}
	}
	return bad
}
