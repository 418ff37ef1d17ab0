package dataset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reportforge/dbpool"
	"reportforge/errs"
)

// maxSQLParams keeps batched inserts under the smallest driver placeholder
// limit.
const maxSQLParams = 2000

// SQLType picks a column type from the column's cells: INTEGER, REAL or TEXT.
func (d *Dataset) SQLType(column string) string {
	kind := ""
	for _, v := range d.Column(column) {
		switch v.(type) {
		case nil:
			continue
		case int64, bool:
			if kind == "" {
				kind = "INTEGER"
			}
		case float64:
			if kind == "" || kind == "INTEGER" {
				kind = "REAL"
			}
		default:
			return "TEXT"
		}
	}
	if kind == "" {
		return "TEXT"
	}
	return kind
}

// WriteSQL stores d as table in the database at dsn, replacing any table of
// the same name. Rows are inserted in batches inside one transaction.
func WriteSQL(ctx context.Context, mgr *dbpool.DBManager, engine dbpool.Engine, dsn, table string, d *Dataset) (int, error) {
	if d.NumColumns() == 0 {
		return 0, &errs.DataUnavailableError{Source: table, Reason: "dataset has no columns"}
	}
	if mgr == nil {
		mgr = dbpool.New(engine, nil)
	}
	db, err := mgr.Open(ctx, dbpool.OpenOptions{Engine: engine, Path: dsn, Mode: dbpool.ModeReadWrite})
	if err != nil {
		return 0, errs.WrapOperationf("open %s", err, engine)
	}
	defer db.Close()

	dialect := dbpool.NewDialect(engine)
	cols := d.Columns()
	defs := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = dialect.QuoteIdent(c) + " " + d.SQLType(c)
		phs[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.WrapOperation("begin transaction", err)
	}
	defer tx.Rollback()

	quoted := dialect.QuoteIdent(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return 0, errs.WrapOperationf("drop table %s", err, table)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(defs, ", "))); err != nil {
		return 0, errs.WrapOperationf("create table %s", err, table)
	}

	batchSize := maxSQLParams / len(cols)
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > 500 {
		batchSize = 500
	}
	single := "(" + strings.Join(phs, ",") + ")"
	inserted := 0
	for start := 0; start < d.Len(); start += batchSize {
		end := min(start+batchSize, d.Len())
		vals := make([]any, 0, (end-start)*len(cols))
		rowPHs := make([]string, 0, end-start)
		for r := start; r < end; r++ {
			for _, v := range d.Row(r) {
				vals = append(vals, sqlValue(v))
			}
			rowPHs = append(rowPHs, single)
		}
		q := fmt.Sprintf("INSERT INTO %s VALUES %s", quoted, strings.Join(rowPHs, ","))
		if _, err := tx.ExecContext(ctx, q, vals...); err != nil {
			return inserted, errs.WrapOperationf("insert rows %d-%d", err, start+1, end)
		}
		inserted += end - start
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.WrapOperation("commit", err)
	}
	return inserted, nil
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return v
}
