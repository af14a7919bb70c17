package migration

import (
	"context"

	"gridwatch/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createCustomersTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create customers table")
	}
	if err := r.createConsumptionTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create consumption_readings table")
	}
	if err := r.createWeatherTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create weather_readings table")
	}
	if err := r.createScoringRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create scoring_runs table")
	}
	if err := r.createScoringResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create scoring_results table")
	}
	return nil
}

func (r *MigrationRunner) createCustomersTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		stratum INTEGER NOT NULL CHECK (stratum BETWEEN 1 AND 6),
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		zone_code TEXT NOT NULL,
		sanctioned_load DOUBLE PRECISION NOT NULL,
		is_fraudulent BOOLEAN
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createConsumptionTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS consumption_readings (
		customer_id TEXT NOT NULL REFERENCES customers(customer_id),
		reading_date DATE NOT NULL,
		consumption DOUBLE PRECISION NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		PRIMARY KEY (customer_id, reading_date)
	)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_consumption_period ON consumption_readings (year, month)`)
	return err
}

func (r *MigrationRunner) createWeatherTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS weather_readings (
		reading_date DATE PRIMARY KEY,
		temperature DOUBLE PRECISION NOT NULL,
		humidity DOUBLE PRECISION NOT NULL,
		uv_index DOUBLE PRECISION NOT NULL
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createScoringRunsTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS scoring_runs (
		run_id TEXT PRIMARY KEY,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		zone_code TEXT,
		features TEXT[] NOT NULL,
		threshold_factor DOUBLE PRECISION NOT NULL,
		threshold DOUBLE PRECISION NOT NULL,
		flagged JSONB NOT NULL DEFAULT '[]',
		importance JSONB NOT NULL DEFAULT '[]',
		kpis JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createScoringResultsTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS scoring_results (
		run_id TEXT NOT NULL REFERENCES scoring_runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		customer_id TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, position)
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}
