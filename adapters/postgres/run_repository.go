package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// runRepository implements ports.RunRepository
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new scoring run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Save persists a run header plus one result row per scored customer.
func (r *runRepository) Save(ctx context.Context, run *anomaly.Run) error {
	flaggedJSON, err := json.Marshal(run.Flagged)
	if err != nil {
		return fmt.Errorf("failed to marshal flagged customers: %w", err)
	}
	importanceJSON, err := json.Marshal(run.Importance)
	if err != nil {
		return fmt.Errorf("failed to marshal feature importance: %w", err)
	}
	kpisJSON, err := json.Marshal(run.KPIs)
	if err != nil {
		return fmt.Errorf("failed to marshal KPIs: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	headerQuery := `INSERT INTO scoring_runs (
		run_id, month, year, zone_code, features, threshold_factor, threshold,
		flagged, importance, kpis, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := tx.ExecContext(ctx, headerQuery,
		run.ID, run.Period.Month, run.Period.Year, run.ZoneCode,
		pq.Array(run.Features), run.ThresholdFactor, run.Threshold,
		flaggedJSON, importanceJSON, kpisJSON, run.CreatedAt.Time(),
	); err != nil {
		return fmt.Errorf("failed to save scoring run: %w", err)
	}

	resultQuery := `INSERT INTO scoring_results (run_id, position, customer_id, score)
		VALUES ($1, $2, $3, $4)`
	for i, id := range run.CustomerIDs {
		if _, err := tx.ExecContext(ctx, resultQuery, run.ID, i, id, run.Scores[i]); err != nil {
			return fmt.Errorf("failed to save scoring result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scoring run: %w", err)
	}
	return nil
}

// GetByID reconstructs a run, results in original row order.
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*anomaly.Run, error) {
	run, err := r.scanRun(r.db.QueryRowxContext(ctx, `SELECT
		run_id, month, year, COALESCE(zone_code, ''), features, threshold_factor, threshold,
		flagged, importance, kpis, created_at
	FROM scoring_runs WHERE run_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRunNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT customer_id, score
		FROM scoring_results WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var customerID core.CustomerID
		var score float64
		if err := rows.Scan(&customerID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan scoring result: %w", err)
		}
		run.CustomerIDs = append(run.CustomerIDs, customerID)
		run.Scores = append(run.Scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns recent run headers (without per-customer scores), newest first.
func (r *runRepository) List(ctx context.Context, limit int) ([]anomaly.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryxContext(ctx, `SELECT
		run_id, month, year, COALESCE(zone_code, ''), features, threshold_factor, threshold,
		flagged, importance, kpis, created_at
	FROM scoring_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring runs: %w", err)
	}
	defer rows.Close()

	var out []anomaly.Run
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// rowScanner covers both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *runRepository) scanRun(row rowScanner) (*anomaly.Run, error) {
	var run anomaly.Run
	var features pq.StringArray
	var flaggedJSON, importanceJSON, kpisJSON []byte
	var createdAt sql.NullTime

	if err := row.Scan(
		&run.ID, &run.Period.Month, &run.Period.Year, &run.ZoneCode, &features,
		&run.ThresholdFactor, &run.Threshold,
		&flaggedJSON, &importanceJSON, &kpisJSON, &createdAt,
	); err != nil {
		return nil, err
	}

	run.Features = []string(features)
	if err := json.Unmarshal(flaggedJSON, &run.Flagged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flagged customers: %w", err)
	}
	if err := json.Unmarshal(importanceJSON, &run.Importance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature importance: %w", err)
	}
	if err := json.Unmarshal(kpisJSON, &run.KPIs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal KPIs: %w", err)
	}
	if createdAt.Valid {
		run.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &run, nil
}
