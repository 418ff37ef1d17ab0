package history

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// Migrations returns the schema migrations in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create generation_runs table",
			Up: `
				CREATE TABLE IF NOT EXISTS generation_runs (
					id TEXT PRIMARY KEY,
					batch_id TEXT NOT NULL DEFAULT '',
					template TEXT NOT NULL,
					output TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					pages INTEGER NOT NULL DEFAULT 0,
					rendered INTEGER NOT NULL DEFAULT 0,
					placeholders INTEGER NOT NULL DEFAULT 0,
					failed INTEGER NOT NULL DEFAULT 0,
					error TEXT NOT NULL DEFAULT '',
					started_at INTEGER NOT NULL,
					finished_at INTEGER NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_runs_template ON generation_runs(template);
				CREATE INDEX IF NOT EXISTS idx_runs_finished ON generation_runs(finished_at);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_runs_finished;
				DROP INDEX IF EXISTS idx_runs_template;
				DROP TABLE IF EXISTS generation_runs;
			`,
		},
		{
			Version:     2,
			Description: "Create run_diagnostics table",
			Up: `
				CREATE TABLE IF NOT EXISTS run_diagnostics (
					run_id TEXT NOT NULL,
					slide INTEGER NOT NULL,
					element INTEGER NOT NULL,
					type TEXT NOT NULL DEFAULT '',
					stage TEXT NOT NULL DEFAULT '',
					kind TEXT NOT NULL DEFAULT '',
					message TEXT NOT NULL DEFAULT '',
					PRIMARY KEY (run_id, slide, element)
				);
			`,
			Down: `
				DROP TABLE IF EXISTS run_diagnostics;
			`,
		},
	}
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// migrate applies every pending migration, each in its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	if err := createMigrationsTable(ctx, s.db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range Migrations() {
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration status for version %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, description) VALUES (?, ?)", m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		s.log(fmt.Sprintf("[HISTORY] Applied migration %d: %s", m.Version, m.Description))
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh store.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

// Rollback reverts one applied migration.
func (s *Store) Rollback(ctx context.Context, version int) error {
	var target *Migration
	for _, m := range Migrations() {
		if m.Version == version {
			m := m
			target = &m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, target.Down); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to rollback migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}
	s.log(fmt.Sprintf("[HISTORY] Rolled back migration %d: %s", version, target.Description))
	return nil
}
