package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/ports"

	"github.com/jmoiron/sqlx"
)

// customerRepository implements ports.CustomerRepository
type customerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sqlx.DB) ports.CustomerRepository {
	return &customerRepository{db: db}
}

// Save upserts customers in one transaction.
func (r *customerRepository) Save(ctx context.Context, customers []customer.Customer) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO customers (
		customer_id, stratum, latitude, longitude, zone_code, sanctioned_load, is_fraudulent
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (customer_id) DO UPDATE SET
		stratum = EXCLUDED.stratum,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		zone_code = EXCLUDED.zone_code,
		sanctioned_load = EXCLUDED.sanctioned_load,
		is_fraudulent = EXCLUDED.is_fraudulent`

	for _, c := range customers {
		if _, err := tx.ExecContext(ctx, query,
			c.ID, c.Stratum, c.Latitude, c.Longitude, c.ZoneCode, c.SanctionedLoad, fraudLabel(c),
		); err != nil {
			return fmt.Errorf("failed to save customer %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit customers: %w", err)
	}
	return nil
}

// List retrieves all customers ordered by ID.
func (r *customerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	return r.list(ctx, `SELECT customer_id, stratum, latitude, longitude, zone_code, sanctioned_load, is_fraudulent
		FROM customers ORDER BY customer_id`)
}

// ListByZone retrieves customers in one zone ordered by ID.
func (r *customerRepository) ListByZone(ctx context.Context, zoneCode string) ([]customer.Customer, error) {
	return r.list(ctx, `SELECT customer_id, stratum, latitude, longitude, zone_code, sanctioned_load, is_fraudulent
		FROM customers WHERE zone_code = $1 ORDER BY customer_id`, zoneCode)
}

// GetByID retrieves one customer.
func (r *customerRepository) GetByID(ctx context.Context, id core.CustomerID) (*customer.Customer, error) {
	rows, err := r.list(ctx, `SELECT customer_id, stratum, latitude, longitude, zone_code, sanctioned_load, is_fraudulent
		FROM customers WHERE customer_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrCustomerNotFound
	}
	return &rows[0], nil
}

func (r *customerRepository) list(ctx context.Context, query string, args ...interface{}) ([]customer.Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var out []customer.Customer
	for rows.Next() {
		var c customer.Customer
		var fraud sql.NullBool
		if err := rows.Scan(&c.ID, &c.Stratum, &c.Latitude, &c.Longitude, &c.ZoneCode, &c.SanctionedLoad, &fraud); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		if fraud.Valid {
			v := fraud.Bool
			c.Fraudulent = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func fraudLabel(c customer.Customer) sql.NullBool {
	if c.Fraudulent == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *c.Fraudulent, Valid: true}
}
