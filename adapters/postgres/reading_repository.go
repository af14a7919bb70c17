package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridwatch/domain/core"
	"gridwatch/domain/reading"
	"gridwatch/ports"

	"github.com/jmoiron/sqlx"
)

// readingRepository implements ports.ReadingRepository
type readingRepository struct {
	db *sqlx.DB
}

// NewReadingRepository creates a new consumption/weather repository
func NewReadingRepository(db *sqlx.DB) ports.ReadingRepository {
	return &readingRepository{db: db}
}

// SaveConsumption inserts monthly readings in one transaction.
func (r *readingRepository) SaveConsumption(ctx context.Context, readings []reading.Consumption) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO consumption_readings (customer_id, reading_date, consumption, month, year)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, reading_date) DO UPDATE SET consumption = EXCLUDED.consumption`

	for _, c := range readings {
		if _, err := tx.ExecContext(ctx, query, c.CustomerID, c.Date, c.Consumed, c.Month, c.Year); err != nil {
			return fmt.Errorf("failed to save reading for %s: %w", c.CustomerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings: %w", err)
	}
	return nil
}

// SaveWeather inserts monthly weather profiles.
func (r *readingRepository) SaveWeather(ctx context.Context, readings []reading.Weather) error {
	query := `INSERT INTO weather_readings (reading_date, temperature, humidity, uv_index)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reading_date) DO UPDATE SET
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			uv_index = EXCLUDED.uv_index`

	for _, w := range readings {
		if _, err := r.db.ExecContext(ctx, query, w.Date, w.Temperature, w.Humidity, w.UVIndex); err != nil {
			return fmt.Errorf("failed to save weather reading: %w", err)
		}
	}
	return nil
}

// ListConsumption retrieves all readings ordered by customer and date.
func (r *readingRepository) ListConsumption(ctx context.Context) ([]reading.Consumption, error) {
	return r.listConsumption(ctx, `SELECT customer_id, reading_date, consumption, month, year
		FROM consumption_readings ORDER BY customer_id, reading_date`)
}

// ConsumptionForPeriod retrieves one billing month's readings.
func (r *readingRepository) ConsumptionForPeriod(ctx context.Context, period reading.Period) ([]reading.Consumption, error) {
	return r.listConsumption(ctx, `SELECT customer_id, reading_date, consumption, month, year
		FROM consumption_readings WHERE month = $1 AND year = $2 ORDER BY customer_id`,
		period.Month, period.Year)
}

// WeatherForPeriod retrieves the weather profile for one billing month.
func (r *readingRepository) WeatherForPeriod(ctx context.Context, period reading.Period) (*reading.Weather, error) {
	var w reading.Weather
	query := `SELECT reading_date, temperature, humidity, uv_index
		FROM weather_readings
		WHERE EXTRACT(MONTH FROM reading_date) = $1 AND EXTRACT(YEAR FROM reading_date) = $2
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, period.Month, period.Year)
	if err := row.Scan(&w.Date, &w.Temperature, &w.Humidity, &w.UVIndex); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query weather: %w", err)
	}
	return &w, nil
}

func (r *readingRepository) listConsumption(ctx context.Context, query string, args ...interface{}) ([]reading.Consumption, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumption: %w", err)
	}
	defer rows.Close()

	var out []reading.Consumption
	for rows.Next() {
		var c reading.Consumption
		if err := rows.Scan(&c.CustomerID, &c.Date, &c.Consumed, &c.Month, &c.Year); err != nil {
			return nil, fmt.Errorf("failed to scan consumption reading: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
