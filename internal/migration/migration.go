package migration

import (
	"context"

	"relialab/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAnalysesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analyses table")
	}

	if err := r.addAnalysesColumns(ctx, db); err != nil {
		return errors.Wrap(err, "failed to add analyses columns")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createAnalysesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			distribution VARCHAR(32) NOT NULL,
			method VARCHAR(8) NOT NULL,
			requested_method VARCHAR(8) NOT NULL,
			fell_back BOOLEAN NOT NULL DEFAULT false,
			parameters JSONB NOT NULL DEFAULT '{}',
			sample JSONB NOT NULL,
			r_squared DOUBLE PRECISION,
			warning TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

// addAnalysesColumns brings 1.0.0 tables forward; overrides arrived in 1.1.0
func (r *MigrationRunner) addAnalysesColumns(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'analyses' AND column_name = 'overrides'
			) THEN
				ALTER TABLE analyses ADD COLUMN overrides JSONB;
			END IF;

			IF NOT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'analyses' AND column_name = 'model'
			) THEN
				ALTER TABLE analyses ADD COLUMN model JSONB;
			END IF;
		END $$;
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_analyses_distribution ON analyses(distribution);
	`)
	return err
}
