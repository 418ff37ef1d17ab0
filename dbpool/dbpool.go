// Package dbpool opens SQL connections for table-backed datasets and the run
// history. Engine DSN details and retrying of transient open failures live
// here; nothing else calls sql.Open.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

type Engine string

const (
	EngineSQLite Engine = "sqlite"
	EngineMySQL  Engine = "mysql"
)

type AccessMode int

const (
	ModeReadWrite AccessMode = iota
	ModeReadOnly
)

const (
	defaultRetries = 3
	defaultBaseMs  = 200
	maxBackoff     = 5 * time.Second
)

// OpenOptions configures one connection.
type OpenOptions struct {
	// Engine defaults to the manager's engine.
	Engine Engine
	// Path is the SQLite file, or the DSN for MySQL.
	Path string
	Mode AccessMode
	// MaxRetries and RetryBaseMs fall back to 3 attempts from 200ms when <= 0.
	MaxRetries  int
	RetryBaseMs int
}

// Logger receives one line per failed attempt.
type Logger func(string)

type driver struct {
	label string
	name  string
	dsn   func(OpenOptions) string
	pool  func(*sql.DB)
}

var drivers = map[Engine]driver{
	EngineSQLite: {label: "SQLite", name: "sqlite", dsn: sqliteDSN, pool: singleConn},
	EngineMySQL:  {label: "MySQL", name: "mysql", dsn: func(o OpenOptions) string { return o.Path }, pool: smallPool},
}

// DBManager opens connections for a default engine.
type DBManager struct {
	logger Logger
	engine Engine
}

func New(defaultEngine Engine, logger Logger) *DBManager {
	if logger == nil {
		logger = func(string) {}
	}
	return &DBManager{engine: defaultEngine, logger: logger}
}

func (m *DBManager) DefaultEngine() Engine { return m.engine }

// Open opens and pings a connection. Failed attempts are retried with
// doubling waits until MaxRetries is reached or ctx ends.
func (m *DBManager) Open(ctx context.Context, opts OpenOptions) (*sql.DB, error) {
	if opts.Engine == "" {
		opts.Engine = m.engine
	}
	d, ok := drivers[opts.Engine]
	if !ok {
		return nil, fmt.Errorf("dbpool: unsupported engine %q", opts.Engine)
	}

	attempts, base := retryParams(opts)
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := connect(ctx, d, opts)
		if err == nil {
			return db, nil
		}
		lastErr = err
		m.logger(fmt.Sprintf("[DBPOOL] %s open attempt %d/%d failed: %v", d.label, i+1, attempts, err))
		if i+1 == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(base, i)):
		}
	}
	return nil, fmt.Errorf("dbpool: failed to open %s %q after %d attempts: %w", d.label, opts.Path, attempts, lastErr)
}

// OpenReadOnly opens path with the default engine in read-only mode.
func (m *DBManager) OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	return m.Open(ctx, OpenOptions{Path: path, Mode: ModeReadOnly})
}

func connect(ctx context.Context, d driver, opts OpenOptions) (*sql.DB, error) {
	db, err := sql.Open(d.name, d.dsn(opts))
	if err != nil {
		return nil, err
	}
	d.pool(db)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// singleConn keeps one connection and no idle ones, so Close releases the
// file lock immediately.
func singleConn(db *sql.DB) {
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(1)
}

func smallPool(db *sql.DB) {
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}

func retryParams(opts OpenOptions) (attempts int, base time.Duration) {
	attempts, baseMs := opts.MaxRetries, opts.RetryBaseMs
	if attempts <= 0 {
		attempts = defaultRetries
	}
	if baseMs <= 0 {
		baseMs = defaultBaseMs
	}
	return attempts, time.Duration(baseMs) * time.Millisecond
}

// backoff is the wait after failed attempt i (0-based): base, 2*base, 4*base
// and so on, capped at maxBackoff.
func backoff(base time.Duration, i int) time.Duration {
	d := base << uint(i)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
