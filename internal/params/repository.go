package params

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Parameter is the database model for one configuration parameter.
type Parameter struct {
	Key         string          `db:"key"`
	Value       json.RawMessage `db:"value"`
	MinValue    *float64        `db:"min_value"`
	MaxValue    *float64        `db:"max_value"`
	Default     json.RawMessage `db:"default_value"`
	Unit        *string         `db:"unit"`
	Description *string         `db:"description"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ParamUpdate is one pending parameter write.
type ParamUpdate struct {
	Key   string
	Value json.RawMessage
}

// Repository provides database operations for configuration parameters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new params repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAll retrieves every configuration parameter.
func (r *Repository) GetAll(ctx context.Context) ([]Parameter, error) {
	query := `
		SELECT key, value, min_value, max_value, default_value, unit, description, updated_at
		FROM config_parameters
		ORDER BY key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query config parameters: %w", err)
	}
	defer rows.Close()

	var out []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.Key, &p.Value, &p.MinValue, &p.MaxValue, &p.Default, &p.Unit, &p.Description, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan config parameter: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config parameters: %w", err)
	}
	return out, nil
}

// UpdateMany writes a batch of parameter values in a single transaction so
// readers never observe a half-updated set.
func (r *Repository) UpdateMany(ctx context.Context, updates []ParamUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO config_parameters (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	now := time.Now()
	for _, u := range updates {
		if _, err := tx.Exec(ctx, query, u.Key, u.Value, now); err != nil {
			return fmt.Errorf("failed to update parameter %s: %w", u.Key, err)
		}
	}

	return tx.Commit(ctx)
}
