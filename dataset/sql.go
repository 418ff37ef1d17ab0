package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reportforge/dbpool"
	"reportforge/errs"
)

// LoadSQL reads a whole table through the connection pool. Without a table
// name the first user table is used.
func LoadSQL(ctx context.Context, engine dbpool.Engine, dsn, table string, opts LoadOptions) (*Dataset, error) {
	mgr := opts.DB
	if mgr == nil {
		mgr = dbpool.New(engine, opts.Logger)
	}
	mode := dbpool.ModeReadOnly
	if engine == dbpool.EngineMySQL {
		mode = dbpool.ModeReadWrite
	}
	db, err := mgr.Open(ctx, dbpool.OpenOptions{Engine: engine, Path: dsn, Mode: mode, MaxRetries: opts.MaxRetries, RetryBaseMs: opts.RetryBaseMs})
	if err != nil {
		return nil, &errs.DataUnavailableError{Source: string(engine), Reason: err.Error()}
	}
	defer db.Close()

	dialect := dbpool.NewDialect(engine)
	if table == "" {
		if table, err = firstTable(ctx, db, dialect); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, dialect.SelectTableQuery(table, opts.Limit))
	if err != nil {
		return nil, &errs.DataUnavailableError{Source: table, Reason: err.Error()}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.WrapOperation("read columns", err)
	}

	var data [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.WrapOperation("scan row", err)
		}
		row := make([]any, len(columns))
		for i, v := range raw {
			row[i] = normaliseSQLValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.WrapOperation("iterate rows", err)
	}
	opts.log("[dataset] loaded table %s: %d rows", table, len(data))
	return New(columns, data), nil
}

func firstTable(ctx context.Context, db *sql.DB, dialect *dbpool.Dialect) (string, error) {
	var name string
	err := db.QueryRowContext(ctx, dialect.ListTablesQuery()).Scan(&name)
	if err != nil {
		return "", &errs.DataUnavailableError{Reason: fmt.Sprintf("no table found: %v", err)}
	}
	return name, nil
}

// normaliseSQLValue maps driver values onto the cell types Dataset uses.
// MySQL returns text columns and DECIMAL as []byte.
func normaliseSQLValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(x)
		if isInt(s) || isFloat(s) {
			return convert(s, kindFloatOrInt(s))
		}
		return s
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time, int64, float64, bool, string:
		return x
	}
	return fmt.Sprint(v)
}

func kindFloatOrInt(s string) columnKind {
	if isInt(s) {
		return kindInt
	}
	return kindFloat
}
