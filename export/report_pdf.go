package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const (
	pdfMaxColumns = 6
	pdfMaxRows    = 50
)

var (
	pdfAccent = &props.Color{Red: 37, Green: 99, Blue: 235}
	pdfMuted  = &props.Color{Red: 100, Green: 116, Blue: 139}
)

// ReportPDF lays the report out as a single-column PDF: title, metrics,
// notes, then the first rows of the table.
func ReportPDF(data ReportData) ([]byte, error) {
	m := maroto.New(config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithDefaultFont(&props.Font{Family: fontfamily.Arial, Size: 10}).
		Build())
	pdfHeader(m, data.Title, data.Subtitle)
	if len(data.Metrics) > 0 {
		pdfMetrics(m, data.Metrics)
	}
	for _, n := range data.Notes {
		m.AddRow(6, col.New(12).Add(text.New(n, pdfText(9, fontstyle.Normal, align.Left, pdfMuted))))
	}
	if data.Table != nil && len(data.Table.Columns) > 0 {
		pdfTable(m, data.Table)
	}

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return document.GetBytes(), nil
}

// pdfText builds text props in the report font.
func pdfText(size float64, style fontstyle.Type, a align.Type, color *props.Color) props.Text {
	return props.Text{Family: fontfamily.Arial, Size: size, Style: style, Align: a, Color: color}
}

func pdfHeader(m core.Maroto, title, subtitle string) {
	m.AddRow(20, col.New(12).Add(text.New(title, pdfText(18, fontstyle.Bold, align.Center, pdfAccent))))
	line := time.Now().Format("2006-01-02 15:04")
	if subtitle != "" {
		line = subtitle + " · " + line
	}
	m.AddRow(8, col.New(12).Add(text.New(line, pdfText(9, fontstyle.Normal, align.Center, pdfMuted))))
	m.AddRow(5)
}

// pdfMetrics prints metrics two per row.
func pdfMetrics(m core.Maroto, metrics []MetricData) {
	for i := 0; i < len(metrics); i += 2 {
		cols := []core.Col{pdfMetric(metrics[i]), col.New(6)}
		if i+1 < len(metrics) {
			cols[1] = pdfMetric(metrics[i+1])
		}
		m.AddRow(8, cols...)
	}
	m.AddRow(5)
}

func pdfMetric(metric MetricData) core.Col {
	label := metric.Title + ": " + metric.Value
	return col.New(6).Add(text.New(label, pdfText(10, fontstyle.Normal, align.Left, nil)))
}

// pdfTable prints at most pdfMaxColumns columns and pdfMaxRows rows; long
// cells are cut to 30 runes.
func pdfTable(m core.Maroto, table *TableData) {
	columns := table.Columns
	if len(columns) > pdfMaxColumns {
		columns = columns[:pdfMaxColumns]
	}
	width := 12 / len(columns)

	header := make([]core.Col, len(columns))
	for i, c := range columns {
		header[i] = col.New(width).Add(text.New(c.Title, pdfText(8, fontstyle.Bold, align.Center, nil)))
	}
	m.AddRow(7, header...)

	shown := table.Data
	if len(shown) > pdfMaxRows {
		shown = shown[:pdfMaxRows]
	}
	for _, row := range shown {
		var cells []core.Col
		for i := 0; i < len(columns) && i < len(row); i++ {
			cells = append(cells, col.New(width).Add(text.New(truncateCell(fmt.Sprint(row[i]), 30), pdfText(7, fontstyle.Normal, align.Left, nil))))
		}
		m.AddRow(6, cells...)
	}

	if len(table.Data) > pdfMaxRows {
		note := fmt.Sprintf("Showing the first %d of %d rows", pdfMaxRows, len(table.Data))
		m.AddRow(6, col.New(12).Add(text.New(note, pdfText(7, fontstyle.Italic, align.Center, pdfMuted))))
	}
}

func truncateCell(s string, max int) string {
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}
