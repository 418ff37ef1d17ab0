package export

import (
	"bytes"
	"fmt"

	gospreadsheet "github.com/VantageDataChat/GoExcel"
)

// ReportXLSX writes the report table to a "Results" sheet and the metrics and
// notes to a "Summary" sheet.
func ReportXLSX(data ReportData) ([]byte, error) {
	if data.Table == nil || len(data.Table.Columns) == 0 {
		return nil, fmt.Errorf("no table data to export")
	}

	head := gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
			Name:  "Calibri",
		}).
		SetFill(&gospreadsheet.Fill{Type: "solid", Color: "2563EB"}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignCenter,
			Vertical:   gospreadsheet.AlignMiddle,
		}).
		SetBorders(thinBorders("FFFFFF"))
	body := gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{Size: 10, Name: "Calibri"}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignLeft,
			Vertical:   gospreadsheet.AlignMiddle,
			WrapText:   true,
		}).
		SetBorders(thinBorders("D9D9D9"))

	wb := gospreadsheet.New()
	ws := wb.GetActiveSheet()
	ws.SetTitle("Results")

	for i, col := range data.Table.Columns {
		cellName, _ := gospreadsheet.CellName(0, i)
		ws.SetCellValue(cellName, col.Title)
		ws.SetCellStyle(cellName, head)

		width := col.Width
		if width <= 0 {
			width = float64(len([]rune(col.Title))) * 2.5
		}
		ws.SetColumnWidth(i, min(max(width, 12), 60))
	}
	ws.SetRowHeight(0, 25)

	for rowIdx, rowData := range data.Table.Data {
		excelRow := rowIdx + 1
		for colIdx := 0; colIdx < len(data.Table.Columns) && colIdx < len(rowData); colIdx++ {
			cellName, _ := gospreadsheet.CellName(excelRow, colIdx)
			ws.SetCellValue(cellName, rowData[colIdx])
			ws.SetCellStyle(cellName, body)
		}
		ws.SetRowHeight(excelRow, 20)
	}
	ws.FreezePane("A2")

	summary, err := wb.AddSheet("Summary")
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet Summary: %w", err)
	}
	summary.SetColumnWidth(0, 30)
	summary.SetColumnWidth(1, 60)
	row := 0
	put := func(label, value string) {
		a, _ := gospreadsheet.CellName(row, 0)
		b, _ := gospreadsheet.CellName(row, 1)
		summary.SetCellValue(a, label)
		summary.SetCellStyle(a, head)
		summary.SetCellValue(b, value)
		summary.SetCellStyle(b, body)
		row++
	}
	put("Report", data.Title)
	if data.Subtitle != "" {
		put("Details", data.Subtitle)
	}
	for _, m := range data.Metrics {
		put(m.Title, m.Value)
	}
	for i, n := range data.Notes {
		put(fmt.Sprintf("Note %d", i+1), n)
	}

	wb.Properties.Title = data.Title
	wb.Properties.Creator = "reportforge"
	wb.Properties.Subject = "Generation report"

	var buf bytes.Buffer
	writer := gospreadsheet.NewXLSXWriter()
	if err := writer.Write(wb, &buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorders(color string) *gospreadsheet.Borders {
	b := gospreadsheet.Border{Style: gospreadsheet.BorderThin, Color: color}
	return &gospreadsheet.Borders{Left: b, Top: b, Bottom: b, Right: b}
}
