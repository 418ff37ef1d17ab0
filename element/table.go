package element

import (
	"context"
	"strings"

	"reportforge/canvas"
	"reportforge/dataset"
	"reportforge/mapper"
	"reportforge/templates"
)

const (
	tableHeaderFontSize = 11
	tableCellFontSize   = 10
	emptyTableLabel     = "[No data available for table]"
)

// Table draws a header row and striped data rows.
type Table struct {
	base
	conf templates.TableConfig
}

func NewTable(cfg templates.ElementConfig, env *Env) *Table {
	t := &Table{base: newBase(cfg, env)}
	if cfg.Table != nil {
		t.conf = *cfg.Table
	}
	return t
}

func (t *Table) Validate() error {
	if err := t.validateGeometry(); err != nil {
		return err
	}
	if len(t.conf.Columns) == 0 && len(t.conf.ColumnMapping) == 0 && len(t.conf.FilterColumns) == 0 {
		return t.configErr("columns", "table requires columns or column_mapping")
	}
	if !numberFormats[strings.ToLower(t.conf.NumberFormat)] {
		return t.configErr("number_format", "unknown number format %q", t.conf.NumberFormat)
	}
	for col, kind := range t.conf.ColumnFormats {
		if !numberFormats[strings.ToLower(kind)] {
			return t.configErr("column_formats", "unknown number format %q for column %q", kind, col)
		}
	}
	if t.conf.MaxRows < 0 || t.conf.TopN < 0 {
		return t.configErr("max_rows", "row limits must not be negative")
	}
	return nil
}

func (t *Table) ascending() bool {
	return t.conf.Ascending == nil || *t.conf.Ascending
}

// Shape applies the table's own column filter, rename, sort and row limit.
// The result is a new Dataset.
func (t *Table) Shape(ds *dataset.Dataset) *dataset.Dataset {
	if ds == nil {
		return nil
	}
	filter := t.conf.FilterColumns
	if len(filter) == 0 {
		filter = t.conf.Columns
	}
	// columns may already carry their mapped names
	if len(filter) > 0 {
		names := make([]string, 0, len(filter))
		for _, c := range filter {
			if !ds.HasColumn(c) {
				if renamed, ok := t.conf.ColumnMapping[c]; ok {
					c = renamed
				}
			}
			names = append(names, c)
		}
		ds, _ = ds.Project(names)
	}
	ds = ds.Rename(t.conf.ColumnMapping)
	if key := t.conf.SortBy; key != "" {
		if !ds.HasColumn(key) {
			key = t.conf.ColumnMapping[key]
		}
		ds, _ = ds.SortBy(key, t.ascending())
	}
	if t.conf.TopN > 0 {
		ds = ds.Head(t.conf.TopN)
	}
	if t.conf.MaxRows > 0 {
		ds = ds.Head(t.conf.MaxRows)
	}
	return ds
}

func (t *Table) formatFor(column string) NumberFormat {
	f := NumberFormat{Kind: t.conf.NumberFormat, Decimals: -1, Currency: t.conf.CurrencySymbol}
	if t.conf.Decimals != nil {
		f.Decimals = *t.conf.Decimals
	}
	if kind, ok := t.conf.ColumnFormats[column]; ok {
		f.Kind = kind
	}
	return f
}

// Cells returns the header and the formatted body of a shaped dataset.
func (t *Table) Cells(ds *dataset.Dataset) (header []string, body [][]string) {
	header = ds.Columns()
	formats := make([]NumberFormat, len(header))
	for j, c := range header {
		formats[j] = t.formatFor(c)
	}
	body = make([][]string, ds.Len())
	for i := range body {
		row := ds.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formats[j].Format(v)
		}
		body[i] = cells
	}
	return header, body
}

func (t *Table) Render(_ context.Context, page canvas.Page, data mapper.ComponentData) (Outcome, error) {
	ds := t.Shape(data.Dataset)
	font := t.env.font()
	if ds.IsEmpty() || ds.NumColumns() == 0 {
		return Outcome{Placeholder: true, Reason: "no rows"}, drawNotice(page, t.box, emptyTableLabel, font, 14)
	}

	header, body := t.Cells(ds)
	s := t.conf
	headerFill := canvas.ColorOr(s.HeaderColor, canvas.Color{R: 0x25, G: 0x63, B: 0xEB, A: 255})
	headerFont := canvas.Font{
		Name:  font,
		Size:  float64(pick(s.HeaderFontSize, tableHeaderFontSize)),
		Bold:  true,
		Color: canvas.ColorOr(s.HeaderTextColor, canvas.White),
	}
	cellFont := canvas.Font{
		Name:  font,
		Size:  float64(pick(s.FontSize, tableCellFontSize)),
		Color: canvas.ColorOr(s.TextColor, canvas.Black),
	}
	stripes := [2]canvas.Color{
		canvas.ColorOr(s.RowColor1, canvas.White),
		canvas.ColorOr(s.RowColor2, canvas.Color{R: 0xF3, G: 0xF4, B: 0xF6, A: 255}),
	}

	colW := t.box.W / float64(len(header))
	rowH := t.box.H / float64(len(body)+1)
	cell := func(row, col int) canvas.Box {
		return canvas.Box{X: t.box.X + float64(col)*colW, Y: t.box.Y + float64(row)*rowH, W: colW, H: rowH}
	}

	for j, h := range header {
		fill := headerFill
		err := page.AddText(canvas.TextBox{
			Box:        cell(0, j),
			Fill:       &fill,
			Paragraphs: []canvas.Paragraph{{Runs: []canvas.Run{{Text: h, Font: headerFont}}, Align: canvas.AlignCenter}},
		})
		if err != nil {
			return Outcome{}, err
		}
	}
	for i, row := range body {
		fill := stripes[i%2]
		for j, v := range row {
			err := page.AddText(canvas.TextBox{
				Box:        cell(i+1, j),
				Fill:       &fill,
				Paragraphs: []canvas.Paragraph{{Runs: []canvas.Run{{Text: v, Font: cellFont}}}},
			})
			if err != nil {
				return Outcome{}, err
			}
		}
	}

	var out Outcome
	if data.Dataset != nil && ds.Len() < data.Dataset.Len() {
		out.note("showing %d of %d rows", ds.Len(), data.Dataset.Len())
	}
	return out, nil
}

func (t *Table) Serialize() templates.ElementConfig {
	out := t.serialize()
	conf := t.conf
	out.Table = &conf
	return out
}

func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
