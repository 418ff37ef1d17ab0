package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReportData is the neutral form of a generation or batch report written by
// the XLSX and PDF writers.
type ReportData struct {
	Title    string
	Subtitle string
	Metrics  []MetricData
	Notes    []string
	Table    *TableData
}

type MetricData struct {
	Title string
	Value string
}

type TableData struct {
	Columns []TableColumn
	Data    [][]interface{}
}

type TableColumn struct {
	Title string
	Width float64 // spreadsheet column width, 0 for automatic
}

// WriteReport writes data to path as XLSX or PDF, chosen by extension.
func WriteReport(path string, data ReportData) error {
	var (
		out []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		out, err = ReportXLSX(data)
	case ".pdf":
		out, err = ReportPDF(data)
	default:
		return fmt.Errorf("unsupported report format %q, use .xlsx or .pdf", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
