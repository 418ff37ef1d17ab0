package dbpool

import (
	"fmt"
	"strings"
)

// Dialect provides engine-specific SQL fragments so callers don't need to
// know which engine is in use.
type Dialect struct {
	Engine Engine
}

// NewDialect creates a Dialect for the given engine.
func NewDialect(engine Engine) *Dialect {
	return &Dialect{Engine: engine}
}

// QuoteIdent returns a properly quoted SQL identifier.
// SQLite uses double quotes; MySQL uses backticks.
// Internal quotes are escaped by doubling them.
func (d *Dialect) QuoteIdent(name string) string {
	switch d.Engine {
	case EngineMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// ListTablesQuery returns the SQL to list user tables.
func (d *Dialect) ListTablesQuery() string {
	switch d.Engine {
	case EngineSQLite:
		return "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return "SHOW TABLES"
	}
}

// SelectTableQuery reads a whole table, optionally limited. limit <= 0 means
// no limit.
func (d *Dialect) SelectTableQuery(table string, limit int) string {
	q := fmt.Sprintf("SELECT * FROM %s", d.QuoteIdent(table))
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}
