package element

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"reportforge/canvas"
	"reportforge/dataset"
	"reportforge/errs"
	"reportforge/mapper"
	"reportforge/templates"
)

// Chart kinds
const (
	KindColumn        = "column"
	KindBar           = "bar"
	KindPie           = "pie"
	KindLine          = "line"
	KindStackedColumn = "stacked_column"
	KindStackedBar    = "stacked_bar"
)

var chartKinds = []string{KindColumn, KindBar, KindPie, KindLine, KindStackedColumn, KindStackedBar}

const defaultChartFontSize = 10

// Chart rasterizes a dataset and embeds the image.
type Chart struct {
	base
	conf templates.ChartConfig
}

func NewChart(cfg templates.ElementConfig, env *Env) *Chart {
	c := &Chart{base: newBase(cfg, env)}
	if cfg.Chart != nil {
		c.conf = *cfg.Chart
	}
	if c.conf.ChartType == "" {
		c.conf.ChartType = KindColumn
	}
	c.conf.ChartType = strings.ToLower(c.conf.ChartType)
	return c
}

func (c *Chart) Validate() error {
	if err := c.validateGeometry(); err != nil {
		return err
	}
	valid := false
	for _, k := range chartKinds {
		valid = valid || k == c.conf.ChartType
	}
	if !valid {
		e := errs.Configf(string(c.cfg.Type), "chart_type", "invalid chart_type %q, must be one of %s", c.conf.ChartType, strings.Join(chartKinds, ", "))
		e.Suggestion = errs.Suggest(c.conf.ChartType, chartKinds)
		return e
	}
	if c.conf.XColumn == "" && c.conf.ChartType != KindPie {
		return c.configErr("x_column", "x_column is required for %s charts", c.conf.ChartType)
	}
	if c.conf.YColumn == "" {
		return c.configErr("y_column", "y_column is required")
	}
	switch c.conf.LegendPosition {
	case "", "top", "bottom", "left", "right", "none":
	default:
		return c.configErr("legend_position", "unknown legend position %q", c.conf.LegendPosition)
	}
	if c.conf.TopN < 0 {
		return c.configErr("top_n", "top_n must not be negative")
	}
	return nil
}

// Kind returns the kind actually drawn: stacked kinds without a series
// column fall back to their plain sibling.
func (c *Chart) Kind() string {
	if c.conf.SeriesColumn == "" {
		switch c.conf.ChartType {
		case KindStackedColumn:
			return KindColumn
		case KindStackedBar:
			return KindBar
		}
	}
	return c.conf.ChartType
}

// Prepare keeps the x, y and series columns, drops rows missing y or x, then
// applies sort and top_n. It returns nil when nothing is left to plot.
func (c *Chart) Prepare(ds *dataset.Dataset) *dataset.Dataset {
	if ds == nil {
		return nil
	}
	var cols []string
	for _, name := range []string{c.conf.XColumn, c.conf.YColumn, c.conf.SeriesColumn} {
		if name != "" && ds.HasColumn(name) {
			cols = append(cols, name)
		}
	}
	if len(cols) == 0 || !ds.HasColumn(c.conf.YColumn) {
		return nil
	}
	sortCol := c.conf.SortBy
	if sortCol != "" && ds.HasColumn(sortCol) && !contains(cols, sortCol) {
		cols = append(cols, sortCol)
	}
	out, _ := ds.Project(cols)
	out = out.DropMissing(nonEmptyStrings(c.conf.YColumn, c.conf.XColumn)...)
	if out.IsEmpty() {
		return nil
	}
	if sortCol != "" {
		out, _ = out.SortBy(sortCol, c.conf.Ascending)
	}
	if c.conf.TopN > 0 {
		out = out.Head(c.conf.TopN)
	}
	return out
}

// Palette resolves the chart colors against the template settings.
func (c *Chart) Palette() []string {
	return ResolvePalette(c.conf.Colors, c.conf.ColorScheme, c.env.Settings, BackendPalette())
}

func (c *Chart) placeholderLabel() string {
	return fmt.Sprintf("[%s Chart]\nNo data available", strings.ToUpper(c.conf.ChartType))
}

func (c *Chart) Render(_ context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error) {
	ds := c.Prepare(data.Dataset)
	if ds == nil {
		return c.fallback(page, "no data after filtering")
	}

	png, out, err := c.rasterize(ds)
	if err != nil {
		c.env.logf("[chart] %s render failed: %v", c.conf.ChartType, err)
		return c.fallback(page, err.Error())
	}
	if bad := invalidColors(c.conf.Colors); len(bad) > 0 {
		out.note("ignored colors %s, expected hex values", strings.Join(bad, ", "))
	}
	if k := c.Kind(); c.conf.SeriesColumn != "" && (k == KindColumn || k == KindBar) {
		out.note("%s chart sums %q per category", k, c.conf.SeriesColumn)
	}
	return out, page.AddPicture(canvas.Picture{Box: c.box, Data: png, MIME: "image/png"})
}

func (c *Chart) fallback(page canvas.Page, reason string) (Outcome, error) {
	return Outcome{Placeholder: true, Reason: reason},
		DrawPlaceholder(page, c.box, c.placeholderLabel(), c.env.font(), 12)
}

// rasterize renders to a scoped temp file, verifies its size and returns the
// PNG bytes. The temp file is removed on every path, and a panic inside the
// chart library comes back as a RenderBackendError.
func (c *Chart) rasterize(ds *dataset.Dataset) (data []byte, out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &errs.RenderBackendError{Backend: "chart", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	dpi := c.conf.DPI
	if dpi <= 0 {
		dpi = c.env.ChartDPI
	}
	w, h, eff := RasterPlan(c.box.W, c.box.H, dpi, c.env.MaxRasterExtent)
	if eff < dpi {
		out.note("raster dpi reduced from %.0f to %.1f", dpi, eff)
	}

	f, err := os.CreateTemp(c.env.TempDir, "reportforge-chart-*.png")
	if err != nil {
		return nil, out, &errs.RenderBackendError{Backend: "chart", Err: err}
	}
	path := f.Name()
	defer os.Remove(path)

	err = c.draw(ds, w, h, eff, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, out, &errs.RenderBackendError{Backend: "chart", Err: err}
	}

	resized, err := ConstrainRaster(path, c.env.MaxRasterExtent)
	if err != nil {
		return nil, out, &errs.RenderBackendError{Backend: "chart", Err: err}
	}
	if resized {
		out.note("raster scaled down to fit %dpx", c.env.MaxRasterExtent)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, out, &errs.RenderBackendError{Backend: "chart", Err: err}
	}
	return data, out, nil
}

func (c *Chart) fontSize() float64 {
	return float64(pick(c.conf.FontSize, defaultChartFontSize))
}

func (c *Chart) grid() bool {
	return c.conf.Grid == nil || *c.conf.Grid
}

func (c *Chart) showLegend() bool {
	return c.conf.LegendPosition != "none" && c.conf.SeriesColumn != ""
}

func (c *Chart) draw(ds *dataset.Dataset, w, h int, dpi float64, dst io.Writer) error {
	colors := c.Palette()
	switch c.Kind() {
	case KindPie:
		return c.drawPie(ds, colors, w, h, dpi, dst)
	case KindLine:
		return c.drawLine(ds, colors, w, h, dpi, dst)
	case KindStackedColumn:
		return c.drawStacked(ds, colors, false, w, h, dpi, dst)
	case KindStackedBar:
		return c.drawStacked(ds, colors, true, w, h, dpi, dst)
	case KindBar:
		return c.drawHorizontal(ds, colors, w, h, dpi, dst)
	default:
		return c.drawColumn(ds, colors, w, h, dpi, dst)
	}
}

func (c *Chart) titleStyle() chart.Style {
	return chart.Style{FontSize: c.fontSize() + 2, Hidden: c.conf.Title == ""}
}

func (c *Chart) axisStyle() chart.Style {
	return chart.Style{FontSize: c.fontSize() - 1}
}

func (c *Chart) gridStyle() chart.Style {
	return chart.Style{
		Hidden:      !c.grid(),
		StrokeColor: drawing.ColorFromHex("D1D5DB"),
		StrokeWidth: 0.5,
	}
}

// point is one (label, value) pair per row. Rows sharing a label are summed
// when a series column is set.
type point struct {
	label string
	value float64
}

func (c *Chart) points(ds *dataset.Dataset) []point {
	labelCol := c.conf.XColumn
	var out []point
	index := map[string]int{}
	for i := 0; i < ds.Len(); i++ {
		yv, _ := ds.Value(i, c.conf.YColumn)
		y, ok := dataset.Float(yv)
		if !ok {
			continue
		}
		label := fmt.Sprint(i + 1)
		if labelCol != "" {
			xv, _ := ds.Value(i, labelCol)
			label = dataset.Format(xv)
		}
		if j, seen := index[label]; seen && c.conf.SeriesColumn != "" {
			out[j].value += y
			continue
		}
		index[label] = len(out)
		out = append(out, point{label: label, value: y})
	}
	return out
}

func (c *Chart) valueLabel(p point) string {
	if !c.conf.ShowValues {
		return p.label
	}
	return fmt.Sprintf("%s (%s)", p.label, grouped(p.value, 0))
}

func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func (c *Chart) drawColumn(ds *dataset.Dataset, colors []string, w, h int, dpi float64, dst io.Writer) error {
	pts := c.points(ds)
	if len(pts) == 0 {
		return fmt.Errorf("no numeric values in %q", c.conf.YColumn)
	}
	bars := make([]chart.Value, len(pts))
	values := make([]float64, len(pts))
	fill := drawing.ColorFromHex(strings.TrimPrefix(colors[0], "#"))
	for i, p := range pts {
		values[i] = p.value
		bars[i] = chart.Value{
			Label: c.valueLabel(p),
			Value: p.value,
			Style: chart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1},
		}
	}
	barWidth := w / (2*len(bars) + 1)
	graph := chart.BarChart{
		Title:      c.conf.Title,
		TitleStyle: c.titleStyle(),
		Width:      w,
		Height:     h,
		DPI:        dpi,
		BarWidth:   max(barWidth, 4),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:      c.axisStyle(),
		YAxis: chart.YAxis{
			Name:           c.conf.YLabel,
			Style:          c.axisStyle(),
			Range:          valueRange(values),
			GridMajorStyle: c.gridStyle(),
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, dst)
}

// drawHorizontal draws a bar chart as single-segment horizontal stacks.
func (c *Chart) drawHorizontal(ds *dataset.Dataset, colors []string, w, h int, dpi float64, dst io.Writer) error {
	pts := c.points(ds)
	if len(pts) == 0 {
		return fmt.Errorf("no numeric values in %q", c.conf.YColumn)
	}
	fill := drawing.ColorFromHex(strings.TrimPrefix(colors[0], "#"))
	bars := make([]chart.StackedBar, len(pts))
	for i, p := range pts {
		bars[i] = chart.StackedBar{
			Name: c.valueLabel(p),
			Values: []chart.Value{{
				Label: p.label,
				Value: p.value,
				Style: chart.Style{FillColor: fill, StrokeColor: fill},
			}},
		}
	}
	graph := chart.StackedBarChart{
		Title:        c.conf.Title,
		TitleStyle:   c.titleStyle(),
		Width:        w,
		Height:       h,
		DPI:          dpi,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:        c.axisStyle(),
		YAxis:        c.axisStyle(),
		IsHorizontal: true,
		Bars:         bars,
	}
	return graph.Render(chart.PNG, dst)
}

func (c *Chart) drawPie(ds *dataset.Dataset, colors []string, w, h int, dpi float64, dst io.Writer) error {
	pts := c.points(ds)
	var total float64
	for _, p := range pts {
		if p.value > 0 {
			total += p.value
		}
	}
	if total <= 0 {
		return fmt.Errorf("pie chart needs positive values in %q", c.conf.YColumn)
	}
	var values []chart.Value
	for i, p := range pts {
		if p.value <= 0 {
			continue
		}
		label := p.label
		if c.conf.ShowValues {
			label = fmt.Sprintf("%s %.1f%%", p.label, p.value/total*100)
		}
		fill := drawing.ColorFromHex(strings.TrimPrefix(colors[i%len(colors)], "#"))
		values = append(values, chart.Value{
			Label: label,
			Value: p.value,
			Style: chart.Style{FillColor: fill, FontSize: c.fontSize() - 1},
		})
	}
	graph := chart.PieChart{
		Title:      c.conf.Title,
		TitleStyle: c.titleStyle(),
		Width:      w,
		Height:     h,
		DPI:        dpi,
		Values:     values,
	}
	return graph.Render(chart.PNG, dst)
}

// pivot groups y by x and series, keeping first-seen order of both.
func (c *Chart) pivot(ds *dataset.Dataset) (xs, series []string, cells map[[2]string]float64) {
	cells = map[[2]string]float64{}
	seenX, seenS := map[string]bool{}, map[string]bool{}
	for i := 0; i < ds.Len(); i++ {
		xv, _ := ds.Value(i, c.conf.XColumn)
		sv, _ := ds.Value(i, c.conf.SeriesColumn)
		yv, _ := ds.Value(i, c.conf.YColumn)
		y, ok := dataset.Float(yv)
		if !ok {
			continue
		}
		x, s := dataset.Format(xv), dataset.Format(sv)
		if !seenX[x] {
			seenX[x] = true
			xs = append(xs, x)
		}
		if !seenS[s] {
			seenS[s] = true
			series = append(series, s)
		}
		cells[[2]string{x, s}] += y
	}
	return xs, series, cells
}

func (c *Chart) drawStacked(ds *dataset.Dataset, colors []string, horizontal bool, w, h int, dpi float64, dst io.Writer) error {
	xs, series, cells := c.pivot(ds)
	if len(xs) == 0 {
		return fmt.Errorf("no numeric values in %q", c.conf.YColumn)
	}
	bars := make([]chart.StackedBar, len(xs))
	for i, x := range xs {
		values := make([]chart.Value, 0, len(series))
		for j, s := range series {
			v, ok := cells[[2]string{x, s}]
			if !ok {
				continue
			}
			fill := drawing.ColorFromHex(strings.TrimPrefix(colors[j%len(colors)], "#"))
			values = append(values, chart.Value{Label: s, Value: v, Style: chart.Style{FillColor: fill, StrokeColor: fill}})
		}
		bars[i] = chart.StackedBar{Name: x, Values: values}
	}
	graph := chart.StackedBarChart{
		Title:        c.conf.Title,
		TitleStyle:   c.titleStyle(),
		Width:        w,
		Height:       h,
		DPI:          dpi,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:        c.axisStyle(),
		YAxis:        c.axisStyle(),
		IsHorizontal: horizontal,
		Bars:         bars,
	}
	return graph.Render(chart.PNG, dst)
}

func (c *Chart) drawLine(ds *dataset.Dataset, colors []string, w, h int, dpi float64, dst io.Writer) error {
	var (
		xs     []string
		series []string
		cells  map[[2]string]float64
	)
	if c.conf.SeriesColumn != "" && ds.HasColumn(c.conf.SeriesColumn) {
		xs, series, cells = c.pivot(ds)
	} else {
		pts := c.points(ds)
		cells = map[[2]string]float64{}
		series = []string{c.conf.YColumn}
		for _, p := range pts {
			xs = append(xs, p.label)
			cells[[2]string{p.label, c.conf.YColumn}] = p.value
		}
	}
	if len(xs) == 0 {
		return fmt.Errorf("no numeric values in %q", c.conf.YColumn)
	}

	ticks := make([]chart.Tick, len(xs))
	for i, x := range xs {
		ticks[i] = chart.Tick{Value: float64(i), Label: x}
	}
	var all []float64
	lines := make([]chart.Series, 0, len(series))
	for j, s := range series {
		var xv, yv []float64
		for i, x := range xs {
			if v, ok := cells[[2]string{x, s}]; ok {
				xv = append(xv, float64(i))
				yv = append(yv, v)
				all = append(all, v)
			}
		}
		stroke := drawing.ColorFromHex(strings.TrimPrefix(colors[j%len(colors)], "#"))
		lines = append(lines, chart.ContinuousSeries{
			Name:    s,
			XValues: xv,
			YValues: yv,
			Style: chart.Style{
				StrokeColor: stroke,
				StrokeWidth: 2,
				DotColor:    stroke,
				DotWidth:    3,
			},
		})
	}

	graph := chart.Chart{
		Title:      c.conf.Title,
		TitleStyle: c.titleStyle(),
		Width:      w,
		Height:     h,
		DPI:        dpi,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis: chart.XAxis{
			Name:           c.conf.XLabel,
			Style:          c.axisStyle(),
			Ticks:          ticks,
			Range:          &chart.ContinuousRange{Min: -0.5, Max: float64(len(xs)) - 0.5},
			GridMajorStyle: c.gridStyle(),
		},
		YAxis: chart.YAxis{
			Name:           c.conf.YLabel,
			Style:          c.axisStyle(),
			Range:          valueRange(all),
			GridMajorStyle: c.gridStyle(),
		},
		Series: lines,
	}
	if c.showLegend() {
		legend := chart.Legend(&graph)
		if c.conf.LegendPosition == "left" {
			legend = chart.LegendLeft(&graph)
		}
		graph.Elements = []chart.Renderable{legend}
	}
	return graph.Render(chart.PNG, dst)
}

func (c *Chart) Serialize() templates.ElementConfig {
	out := c.serialize()
	conf := c.conf
	out.Chart = &conf
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonEmptyStrings(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
