package element

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"reportforge/canvas"
	"reportforge/dataset"
	"reportforge/mapper"
	"reportforge/templates"
)

// Insight kinds
const (
	InsightKeyMetrics    = "key_metrics"
	InsightTrends        = "trends"
	InsightHighlights    = "highlights"
	InsightComparisons   = "comparisons"
	InsightTopPerformers = "top_performers"
)

// Summary layouts
const (
	LayoutBullets  = "bullets"
	LayoutNumbered = "numbered"
	LayoutCallouts = "callout_boxes"
)

var (
	insightKinds   = []string{InsightKeyMetrics, InsightTrends, InsightHighlights, InsightComparisons, InsightTopPerformers}
	summaryLayouts = []string{LayoutBullets, LayoutNumbered, LayoutCallouts}
)

const (
	noInsightsLabel     = "[No insights available - insufficient data]"
	defaultMaxInsights  = 5
	summaryFontSize     = 14
	calloutFontSize     = 13
	calloutGap          = 0.2
	calloutMinHeight    = 0.5
	defaultTopPerformer = 3
)

// Insight is one generated sentence.
type Insight struct {
	Kind string
	Icon string
	Text string
}

// Line renders the insight with or without its icon.
func (in Insight) Line(icons bool) string {
	if icons && in.Icon != "" {
		return in.Icon + " " + in.Text
	}
	return in.Text
}

// Summary turns a dataset into short textual insights.
type Summary struct {
	base
	conf templates.SummaryConfig
}

func NewSummary(cfg templates.ElementConfig, env *Env) *Summary {
	s := &Summary{base: newBase(cfg, env)}
	if cfg.Summary != nil {
		s.conf = *cfg.Summary
	}
	if len(s.conf.InsightTypes) == 0 {
		s.conf.InsightTypes = []string{InsightKeyMetrics}
	}
	if s.conf.Layout == "" {
		s.conf.Layout = LayoutBullets
	}
	return s
}

func (s *Summary) Validate() error {
	if err := s.validateGeometry(); err != nil {
		return err
	}
	for _, k := range s.conf.InsightTypes {
		if !contains(insightKinds, k) {
			return s.configErr("insight_types", "unknown insight type %q, must be one of %s", k, strings.Join(insightKinds, ", "))
		}
	}
	if !contains(summaryLayouts, s.conf.Layout) {
		return s.configErr("layout", "unknown layout %q", s.conf.Layout)
	}
	if s.conf.MaxItems < 0 {
		return s.configErr("max_items", "max_items must not be negative")
	}
	return nil
}

// Insights computes every configured kind in order, truncated to max_items.
func (s *Summary) Insights(ds *dataset.Dataset) []Insight {
	var out []Insight
	if len(s.conf.Metrics) > 0 {
		out = append(out, metricLines(s.conf.Metrics)...)
	}
	if ds != nil && !ds.IsEmpty() {
		for _, kind := range s.conf.InsightTypes {
			switch kind {
			case InsightKeyMetrics:
				if len(s.conf.Metrics) == 0 {
					out = append(out, s.keyMetrics(ds)...)
				}
			case InsightTrends:
				out = append(out, s.trends(ds)...)
			case InsightHighlights:
				out = append(out, s.highlights(ds)...)
			case InsightComparisons:
				out = append(out, s.comparisons(ds)...)
			case InsightTopPerformers:
				out = append(out, s.topPerformers(ds)...)
			}
		}
	}
	limit := pick(s.conf.MaxItems, defaultMaxInsights)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// metricLines passes a flat metrics mapping through in key order. Only
// numeric values are kept.
func metricLines(metrics map[string]any) []Insight {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []Insight
	for _, k := range keys {
		f, ok := dataset.Float(metrics[k])
		if !ok {
			continue
		}
		out = append(out, Insight{Kind: InsightKeyMetrics, Icon: "📊", Text: fmt.Sprintf("%s: %s", k, compact(metrics[k], f))})
	}
	return out
}

// compact formats whole numbers without decimals and everything else with
// two, both grouped.
func compact(v any, f float64) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return grouped(f, 0)
	}
	return grouped(f, 2)
}

func short(f float64) string {
	if f == math.Trunc(f) {
		return grouped(f, 0)
	}
	return grouped(f, 1)
}

// metricColumns returns the configured metric columns that are numeric,
// falling back to every numeric column. Excluded names are skipped.
func (s *Summary) metricColumns(ds *dataset.Dataset, exclude ...string) []string {
	numeric := ds.NumericColumns()
	var out []string
	for _, c := range s.conf.MetricColumns {
		if contains(numeric, c) && !contains(exclude, c) {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, c := range numeric {
		if !contains(exclude, c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Summary) identifier(ds *dataset.Dataset) string {
	if s.conf.CompareColumn != "" && ds.HasColumn(s.conf.CompareColumn) {
		return s.conf.CompareColumn
	}
	if ds.NumColumns() == 0 {
		return ""
	}
	return ds.Columns()[0]
}

func (s *Summary) keyMetrics(ds *dataset.Dataset) []Insight {
	var out []Insight
	for _, col := range s.metricColumns(ds) {
		st := dataset.Summarize(ds.Column(col))
		if st.Count == 0 {
			continue
		}
		out = append(out,
			Insight{Kind: InsightKeyMetrics, Icon: "📊", Text: fmt.Sprintf("Total %s: %s", col, grouped(st.Sum, 0))},
			Insight{Kind: InsightKeyMetrics, Icon: "📊", Text: fmt.Sprintf("Average %s: %s", col, grouped(st.Mean, 1))},
		)
		if len(out) >= 3 {
			break
		}
	}
	return out
}

func (s *Summary) trends(ds *dataset.Dataset) []Insight {
	tc := s.conf.TimeColumn
	if tc == "" || !ds.HasColumn(tc) || ds.Len() < 2 {
		return nil
	}
	sorted, _ := ds.SortBy(tc, true)
	cols := s.metricColumns(sorted, tc)
	if len(s.conf.MetricColumns) == 0 && len(cols) > 2 {
		cols = cols[:2]
	}

	var out []Insight
	for _, col := range cols {
		first, last, ok := endpoints(sorted.Column(col))
		if !ok {
			continue
		}
		pct := 0.0
		if first != 0 {
			pct = (last - first) / math.Abs(first) * 100
		}
		in := Insight{Kind: InsightTrends}
		switch {
		case pct > 0:
			in.Icon = "📈"
			in.Text = fmt.Sprintf("%s increased by %.1f%%", col, pct)
		case pct < 0:
			in.Icon = "📉"
			in.Text = fmt.Sprintf("%s decreased by %.1f%%", col, -pct)
		default:
			in.Icon = "➡️"
			in.Text = col + " remained stable"
		}
		if s.conf.ShowIcons {
			in.Text += fmt.Sprintf(" (%s → %s)", short(first), short(last))
		} else {
			in.Text += " over period"
		}
		out = append(out, in)
	}
	return out
}

func endpoints(values []any) (first, last float64, ok bool) {
	var nums []float64
	for _, v := range values {
		if f, isNum := dataset.Float(v); isNum {
			nums = append(nums, f)
		}
	}
	if len(nums) < 2 {
		return 0, 0, false
	}
	return nums[0], nums[len(nums)-1], true
}

// argMax returns the row holding the largest numeric value of col.
func argMax(ds *dataset.Dataset, col string) (int, float64, bool) {
	best, bestV := -1, 0.0
	for i := 0; i < ds.Len(); i++ {
		v, _ := ds.Value(i, col)
		if f, ok := dataset.Float(v); ok && (best < 0 || f > bestV) {
			best, bestV = i, f
		}
	}
	return best, bestV, best >= 0
}

func (s *Summary) label(ds *dataset.Dataset, id string, row int) string {
	v, _ := ds.Value(row, id)
	return dataset.Format(v)
}

func (s *Summary) highlights(ds *dataset.Dataset) []Insight {
	id := s.identifier(ds)
	var out []Insight
	for _, col := range s.metricColumns(ds, id) {
		row, v, ok := argMax(ds, col)
		if !ok {
			continue
		}
		out = append(out, Insight{
			Kind: InsightHighlights,
			Icon: "⭐",
			Text: fmt.Sprintf("Highest %s: %s (%s)", col, s.label(ds, id, row), short(v)),
		})
	}
	return out
}

// ranked returns the rows with a numeric col value, largest first.
func ranked(ds *dataset.Dataset, col string) *dataset.Dataset {
	out, _ := ds.DropMissing(col).SortBy(col, false)
	return out
}

func (s *Summary) comparisons(ds *dataset.Dataset) []Insight {
	cc := s.conf.CompareColumn
	if cc == "" || !ds.HasColumn(cc) || ds.Len() < 2 {
		return nil
	}
	cols := s.metricColumns(ds, cc)
	if len(cols) == 0 {
		return nil
	}
	col := cols[0]
	r := ranked(ds, col)
	if r.Len() < 2 {
		return nil
	}
	a, _ := r.Value(0, col)
	b, _ := r.Value(1, col)
	av, _ := dataset.Float(a)
	bv, _ := dataset.Float(b)
	diff := av - bv
	pct := 0.0
	if bv != 0 {
		pct = diff / math.Abs(bv) * 100
	}
	return []Insight{{
		Kind: InsightComparisons,
		Icon: "🔄",
		Text: fmt.Sprintf("%s leads %s by %s (%.1f%%) in %s", s.label(r, cc, 0), s.label(r, cc, 1), short(diff), pct, col),
	}}
}

func (s *Summary) topPerformers(ds *dataset.Dataset) []Insight {
	id := s.identifier(ds)
	cols := s.metricColumns(ds, id)
	if len(cols) == 0 {
		return nil
	}
	col := cols[0]
	r := ranked(ds, col)
	n := min(defaultTopPerformer, r.Len())
	if n == 0 {
		return nil
	}
	names := make([]string, n)
	for i := range names {
		names[i] = s.label(r, id, i)
	}
	return []Insight{{
		Kind: InsightTopPerformers,
		Icon: "🏆",
		Text: fmt.Sprintf("Top %d in %s: %s", n, col, strings.Join(names, ", ")),
	}}
}

// Lines formats the insights for the bullets and numbered layouts.
func (s *Summary) Lines(insights []Insight) []string {
	out := make([]string, len(insights))
	for i, in := range insights {
		switch s.conf.Layout {
		case LayoutNumbered:
			out[i] = fmt.Sprintf("%d. %s", i+1, in.Line(false))
		case LayoutCallouts:
			out[i] = in.Line(s.conf.ShowIcons)
		default:
			out[i] = "• " + in.Line(s.conf.ShowIcons)
		}
	}
	return out
}

func (s *Summary) textFont(size int, bold bool) canvas.Font {
	def := canvas.ColorOr(s.env.Settings.ColorScheme.Text, canvas.Black)
	return canvas.Font{
		Name:  s.env.font(),
		Size:  float64(pick(s.conf.FontSize, size)),
		Bold:  bold,
		Color: canvas.ColorOr(s.conf.Color, def),
	}
}

func (s *Summary) Render(_ context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error) {
	insights := s.Insights(data.Dataset)
	if len(insights) == 0 {
		return Outcome{Placeholder: true, Reason: "no insights"},
			drawNotice(page, s.box, noInsightsLabel, s.env.font(), 14)
	}
	lines := s.Lines(insights)
	if s.conf.Layout == LayoutCallouts {
		return Outcome{}, s.renderCallouts(page, lines)
	}

	var paras []canvas.Paragraph
	if s.conf.Title != "" {
		title := s.textFont(summaryFontSize, true)
		title.Size += 4
		paras = append(paras, canvas.Lines(s.conf.Title, title, canvas.AlignLeft)...)
	}
	font := s.textFont(summaryFontSize, false)
	for _, l := range lines {
		paras = append(paras, canvas.Paragraph{Runs: []canvas.Run{{Text: l, Font: font}}})
	}
	return Outcome{}, page.AddText(canvas.TextBox{Box: s.box, Paragraphs: paras})
}

func (s *Summary) renderCallouts(page canvas.Page, lines []string) error {
	border := canvas.ColorOr(s.conf.HighlightColor, canvas.Color{R: 0x25, G: 0x63, B: 0xEB, A: 255})
	fill := canvas.ColorOr(s.conf.BoxColor, canvas.Color{R: 0xEF, G: 0xF6, B: 0xFF, A: 255})
	font := s.textFont(calloutFontSize, true)

	n := float64(len(lines))
	h := math.Max((s.box.H-calloutGap*(n-1))/n, calloutMinHeight)
	for i, l := range lines {
		box := canvas.Box{X: s.box.X, Y: s.box.Y + float64(i)*(h+calloutGap), W: s.box.W, H: h}
		if err := page.AddRect(box, border); err != nil {
			return err
		}
		f := fill
		err := page.AddText(canvas.TextBox{
			Box:        box.Inset(2.0 / 72),
			Fill:       &f,
			Paragraphs: []canvas.Paragraph{{Runs: []canvas.Run{{Text: l, Font: font}}}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Summary) Serialize() templates.ElementConfig {
	out := s.serialize()
	conf := s.conf
	out.Summary = &conf
	return out
}
