// Package history keeps a SQLite record of generation runs: one row per
// generated (or refused) deck plus the per-element diagnostics of its
// placeholders.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"reportforge/dbpool"
	"reportforge/errs"
	"reportforge/generator"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("history: run not found")

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Diagnostic is a stored element failure.
type Diagnostic struct {
	Slide   int    `json:"slide"`
	Element int    `json:"element"`
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Run is one recorded generation.
type Run struct {
	ID           string       `json:"id"`
	BatchID      string       `json:"batchId,omitempty"`
	Template     string       `json:"template"`
	Output       string       `json:"output,omitempty"`
	Status       string       `json:"status"`
	Pages        int          `json:"pages"`
	Rendered     int          `json:"rendered"`
	Placeholders int          `json:"placeholders"`
	Failed       int          `json:"failed"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
}

// FromReport converts a generation report. err is the error Generate
// returned alongside it, if any.
func FromReport(r *generator.Report, err error) Run {
	rendered, placeholders, failed := r.Counts()
	run := Run{
		ID:           r.RunID,
		Template:     r.Template,
		Output:       r.Output,
		Status:       StatusSuccess,
		Pages:        r.Pages,
		Rendered:     rendered,
		Placeholders: placeholders,
		Failed:       failed,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	if err != nil {
		run.Status, run.Error = StatusFailed, err.Error()
	}
	for _, e := range r.Diagnostics() {
		run.Diagnostics = append(run.Diagnostics, Diagnostic{
			Slide:   e.Slide,
			Element: e.Index,
			Type:    string(e.Type),
			Stage:   string(e.Diagnostic.Stage),
			Kind:    string(e.Diagnostic.Kind),
			Message: e.Diagnostic.Message,
		})
	}
	return run
}

// FromJob converts a batch job result. Jobs refused before a report existed
// keep the job id and template.
func FromJob(batchID string, res generator.JobResult) Run {
	var run Run
	if res.Report != nil {
		run = FromReport(res.Report, nil)
	} else {
		run = Run{ID: res.ID, Template: res.Template}
	}
	run.BatchID = batchID
	if res.Status != generator.JobSuccess {
		run.Status, run.Error = StatusFailed, res.Error
	}
	return run
}

// Filter narrows List.
type Filter struct {
	Template string
	BatchID  string
	Limit    int
}

// Store is the run history database.
type Store struct {
	db  *sql.DB
	log func(string)
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(ctx context.Context, mgr *dbpool.DBManager, path string, log func(string)) (*Store, error) {
	if log == nil {
		log = func(string) {}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errs.IOError{Op: "create history directory", Path: dir, Err: err}
		}
	}
	if mgr == nil {
		mgr = dbpool.New(dbpool.EngineSQLite, log)
	}
	db, err := mgr.Open(ctx, dbpool.OpenOptions{Engine: dbpool.EngineSQLite, Path: path, Mode: dbpool.ModeReadWrite})
	if err != nil {
		return nil, errs.WrapOperationf("open history %s", err, path)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record inserts or replaces a run and its diagnostics.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if strings.TrimSpace(run.Template) == "" {
		return "", fmt.Errorf("template is required")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = StatusSuccess
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO generation_runs
			(id, batch_id, template, output, status, pages, rendered, placeholders, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.BatchID, run.Template, run.Output, run.Status, run.Pages, run.Rendered, run.Placeholders,
		run.Failed, run.Error, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM run_diagnostics WHERE run_id = ?", run.ID); err != nil {
		return "", fmt.Errorf("failed to clear diagnostics: %w", err)
	}
	for _, d := range run.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_diagnostics (run_id, slide, element, type, stage, kind, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, d.Slide, d.Element, d.Type, d.Stage, d.Kind, d.Message)
		if err != nil {
			return "", fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `id, batch_id, template, output, status, pages, rendered, placeholders, failed, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var started, finished int64
	err := row.Scan(&run.ID, &run.BatchID, &run.Template, &run.Output, &run.Status, &run.Pages,
		&run.Rendered, &run.Placeholders, &run.Failed, &run.Error, &started, &finished)
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	return run, err
}

// List returns runs newest first, without diagnostics.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM generation_runs"
	var where []string
	var args []interface{}
	if f.Template != "" {
		where = append(where, "template = ?")
		args = append(args, f.Template)
	}
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY finished_at DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its diagnostics.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM generation_runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT slide, element, type, stage, kind, message
		FROM run_diagnostics WHERE run_id = ? ORDER BY slide, element
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.Slide, &d.Element, &d.Type, &d.Stage, &d.Kind, &d.Message); err != nil {
			return Run{}, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		run.Diagnostics = append(run.Diagnostics, d)
	}
	return run, rows.Err()
}

// Prune deletes runs that finished before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ms := cutoff.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM run_diagnostics
		WHERE run_id IN (SELECT id FROM generation_runs WHERE finished_at < ?)
	`, ms); err != nil {
		return 0, fmt.Errorf("failed to prune diagnostics: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM generation_runs WHERE finished_at < ?", ms)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}
