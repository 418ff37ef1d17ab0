package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reportforge/dbpool"
	"reportforge/errs"
)

// LoadOptions tunes how a source is read.
type LoadOptions struct {
	// Sheet selects a workbook sheet by name. Empty means the first sheet.
	Sheet string
	// Limit caps SQL reads. 0 means no limit.
	Limit int
	// DB opens SQL sources. A default SQLite manager is used when nil.
	DB *dbpool.DBManager
	// MaxRetries and RetryBaseMs tune SQL connection retries; 0 keeps the
	// pool defaults.
	MaxRetries  int
	RetryBaseMs int
	Logger      func(string)
}

func (o LoadOptions) log(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger(fmt.Sprintf(format, args...))
	}
}

// Open loads a Dataset from a file path (.csv, .xlsx, .xlsm, .xls) or a SQL
// URI (sqlite://<path>?table=<name>, mysql://<dsn>?table=<name>).
func Open(ctx context.Context, source string, opts LoadOptions) (*Dataset, Meta, error) {
	meta := Meta{FilePath: source, FileName: filepath.Base(source), LoadedAt: time.Now()}

	if engine, dsn, table, ok := parseSQLSource(source); ok {
		meta.FileName = table
		ds, err := LoadSQL(ctx, engine, dsn, table, opts)
		return ds, meta, err
	}

	if _, err := os.Stat(source); err != nil {
		return nil, meta, &errs.DataUnavailableError{Source: source, Reason: "file not found"}
	}

	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(source)) {
	case ".csv", ".txt":
		ds, err = LoadCSV(source)
	case ".xlsx", ".xlsm":
		ds, err = LoadXLSX(source, opts.Sheet)
	case ".xls":
		ds, err = LoadXLS(source, opts.Sheet)
	default:
		return nil, meta, fmt.Errorf("unsupported dataset format %q", filepath.Ext(source))
	}
	if err != nil {
		return nil, meta, err
	}
	opts.log("[dataset] loaded %s: %d rows, %d columns", meta.FileName, ds.Len(), ds.NumColumns())
	return ds, meta, nil
}

// parseSQLSource splits sqlite://path?table=t and mysql://dsn?table=t.
func parseSQLSource(source string) (dbpool.Engine, string, string, bool) {
	var engine dbpool.Engine
	var rest string
	switch {
	case strings.HasPrefix(source, "sqlite://"):
		engine, rest = dbpool.EngineSQLite, strings.TrimPrefix(source, "sqlite://")
	case strings.HasPrefix(source, "mysql://"):
		engine, rest = dbpool.EngineMySQL, strings.TrimPrefix(source, "mysql://")
	default:
		return "", "", "", false
	}

	i := strings.LastIndex(rest, "table=")
	if i < 0 {
		return engine, rest, "", true
	}
	table, _ := url.QueryUnescape(rest[i+len("table="):])
	if amp := strings.IndexByte(table, '&'); amp >= 0 {
		table = table[:amp]
	}
	dsn := strings.TrimRight(rest[:i], "?&")
	return engine, dsn, table, true
}

// LoadCSV reads a comma separated file whose first record is the header.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.WrapOperation("open csv", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV from r.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errs.WrapOperation("parse csv", err)
	}
	if len(records) == 0 {
		return nil, &errs.DataUnavailableError{Reason: "csv file is empty"}
	}
	return FromText(records[0], skipBlank(records[1:])), nil
}

func skipBlank(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
