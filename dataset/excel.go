package dataset

import (
	"fmt"
	"strings"
	"unicode/utf8"

	xlsReader "github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"reportforge/errs"
)

// LoadXLSX reads one sheet of an OOXML workbook. The first non-blank row is
// the header.
func LoadXLSX(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.WrapOperation("open excel file", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &errs.DataUnavailableError{Source: path, Reason: "no sheets found in excel file"}
	}
	name, err := pickSheet(sheets, sheet, path)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errs.WrapOperationf("read sheet %s", err, name)
	}
	rows = skipBlank(rows)
	if len(rows) == 0 {
		return nil, &errs.DataUnavailableError{Source: path, Reason: fmt.Sprintf("sheet %q is empty", name)}
	}
	return FromText(rows[0], rows[1:]), nil
}

// LoadXLS reads one sheet of a legacy BIFF workbook. Cell text that is not
// valid UTF-8 is decoded as Windows-1252.
func LoadXLS(path, sheet string) (*Dataset, error) {
	workbook, err := xlsReader.OpenFile(path)
	if err != nil {
		return nil, errs.WrapOperation("open xls", err)
	}

	names := make([]string, 0, workbook.GetNumberSheets())
	for si := 0; si < workbook.GetNumberSheets(); si++ {
		s, err := workbook.GetSheet(si)
		if err != nil {
			names = append(names, "")
			continue
		}
		names = append(names, s.GetName())
	}
	if len(names) == 0 {
		return nil, &errs.DataUnavailableError{Source: path, Reason: "no sheets found in xls file"}
	}
	name, err := pickSheet(names, sheet, path)
	if err != nil {
		return nil, err
	}

	var s = -1
	for i, n := range names {
		if n == name {
			s = i
			break
		}
	}
	ws, err := workbook.GetSheet(s)
	if err != nil {
		return nil, errs.WrapOperationf("read sheet %s", err, name)
	}

	var rows [][]string
	for r := 0; r <= ws.GetNumberRows(); r++ {
		row, err := ws.GetRow(r)
		if err != nil {
			continue
		}
		cols := row.GetCols()
		rd := make([]string, len(cols))
		for c, cell := range cols {
			rd[c] = toUTF8(cell.GetString())
		}
		rows = append(rows, rd)
	}
	rows = skipBlank(rows)
	if len(rows) == 0 {
		return nil, &errs.DataUnavailableError{Source: path, Reason: fmt.Sprintf("sheet %q is empty", name)}
	}
	return FromText(rows[0], rows[1:]), nil
}

func pickSheet(sheets []string, want, path string) (string, error) {
	if want == "" {
		for _, s := range sheets {
			if s != "" {
				return s, nil
			}
		}
		return "", &errs.DataUnavailableError{Source: path, Reason: "no readable sheet"}
	}
	for _, s := range sheets {
		if strings.EqualFold(s, want) {
			return s, nil
		}
	}
	return "", &errs.DataUnavailableError{Source: path, Reason: fmt.Sprintf("sheet %q not found", want)}
}

func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return decoded
}
