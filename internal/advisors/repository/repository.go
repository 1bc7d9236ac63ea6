package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repuestos_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Advisor operational states.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

const advisorNotFoundMsg = "advisor not found"

// Advisor is the database model for a provider who can submit offers.
type Advisor struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Phone           string    `db:"phone"`
	City            string    `db:"city"`
	Department      string    `db:"department"`
	PointOfSale     string    `db:"point_of_sale"`
	TrustScore      float64   `db:"trust_score"`
	ActivityPct     *float64  `db:"activity_pct"`
	PerformancePct  *float64  `db:"performance_pct"`
	Status          string    `db:"status"`
	OffersMade      int       `db:"offers_made"`
	OffersWon       int       `db:"offers_won"`
	TotalSalesCents int64     `db:"total_sales_cents"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const advisorColumns = `id, name, phone, city, department, point_of_sale, trust_score,
		activity_pct, performance_pct, status, offers_made, offers_won, total_sales_cents,
		created_at, updated_at`

// Repository provides database operations for advisors.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new advisors repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an advisor.
func (r *Repository) Create(ctx context.Context, a *Advisor) error {
	query := `
		INSERT INTO advisors (` + advisorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if _, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.Phone, a.City, a.Department, a.PointOfSale, a.TrustScore,
		a.ActivityPct, a.PerformancePct, a.Status, a.OffersMade, a.OffersWon, a.TotalSalesCents,
		a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert advisor: %w", err)
	}
	return nil
}

// GetByID retrieves an advisor by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE id = $1`

	var a Advisor
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.Phone, &a.City, &a.Department, &a.PointOfSale, &a.TrustScore,
		&a.ActivityPct, &a.PerformancePct, &a.Status, &a.OffersMade, &a.OffersWon, &a.TotalSalesCents,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(advisorNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get advisor: %w", err)
	}
	return &a, nil
}

// ListByCities retrieves every advisor located in one of the given cities.
// City matching is case-insensitive; callers pass normalized uppercase names.
func (r *Repository) ListByCities(ctx context.Context, cities []string) ([]Advisor, error) {
	if len(cities) == 0 {
		return nil, nil
	}

	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE UPPER(city) = ANY($1)`

	rows, err := r.pool.Query(ctx, query, cities)
	if err != nil {
		return nil, fmt.Errorf("failed to list advisors by city: %w", err)
	}
	defer rows.Close()

	var out []Advisor
	for rows.Next() {
		var a Advisor
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Phone, &a.City, &a.Department, &a.PointOfSale, &a.TrustScore,
			&a.ActivityPct, &a.PerformancePct, &a.Status, &a.OffersMade, &a.OffersWon, &a.TotalSalesCents,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan advisor: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advisors: %w", err)
	}
	return out, nil
}

// UpdateMetrics replaces the activity/performance percentages and trust score.
// Used by the periodic metrics job, not by request handling.
func (r *Repository) UpdateMetrics(ctx context.Context, id uuid.UUID, activityPct, performancePct *float64, trust float64) error {
	query := `
		UPDATE advisors
		SET activity_pct = $2, performance_pct = $3, trust_score = $4, updated_at = $5
		WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, activityPct, performancePct, trust, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update advisor metrics: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(advisorNotFoundMsg)
	}
	return nil
}
