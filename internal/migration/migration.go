package migration

import (
	"context"

	"adpulse/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner creates the metric store schema. Statements are written
// to run unchanged on PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. It is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createMetricRecordsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create metric_records table", err)
	}

	if err := r.createAnalysesTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create analyses table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

// metric_records holds one JSON payload per source, account and day
func (r *MigrationRunner) createMetricRecordsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_records (
			source TEXT NOT NULL,
			account_id TEXT NOT NULL,
			date TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (source, account_id, date)
		)
	`)
	return err
}

func (r *MigrationRunner) createAnalysesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			account_id TEXT NOT NULL,
			model_version TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_metric_records_source_date ON metric_records(source, date)",
		"CREATE INDEX IF NOT EXISTS idx_analyses_account_created ON analyses(source, account_id, created_at DESC)",
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
