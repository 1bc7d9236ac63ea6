package expiration

import (
	"context"
	"fmt"
	"time"

	"repuestos_backend/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepOffer is the slice of an offer the sweeper needs.
type SweepOffer struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	AdvisorID uuid.UUID
	CreatedAt time.Time
}

// Repository reads and expires offers for the sweeper.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an expiration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sweepQuery = `
	SELECT id, request_id, advisor_id, created_at FROM offers
	WHERE estado = $1 AND created_at <= $2 AND created_at > $3
	ORDER BY created_at ASC`

// ListNearingExpiry returns active offers inside the warning window: past
// warnBefore but not yet past expireBefore.
func (r *Repository) ListNearingExpiry(ctx context.Context, warnBefore, expireBefore time.Time) ([]SweepOffer, error) {
	rows, err := r.pool.Query(ctx, sweepQuery, lifecycle.OfferEnviada, warnBefore, expireBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers nearing expiry: %w", err)
	}
	return scanSweepOffers(rows)
}

// ListExpired returns active offers whose deadline has passed.
func (r *Repository) ListExpired(ctx context.Context, expireBefore time.Time) ([]SweepOffer, error) {
	query := `
		SELECT id, request_id, advisor_id, created_at FROM offers
		WHERE estado = $1 AND created_at <= $2
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, lifecycle.OfferEnviada, expireBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired offers: %w", err)
	}
	return scanSweepOffers(rows)
}

func scanSweepOffers(rows pgx.Rows) ([]SweepOffer, error) {
	defer rows.Close()

	var out []SweepOffer
	for rows.Next() {
		var o SweepOffer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.AdvisorID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}
	return out, nil
}

// Expire moves one offer ENVIADA -> EXPIRADA. The guarded UPDATE makes the
// sweep idempotent: an offer already expired (or adjudicated meanwhile) is
// simply not matched.
func (r *Repository) Expire(ctx context.Context, offerID uuid.UUID) (bool, error) {
	query := `UPDATE offers SET estado = $3, updated_at = $4 WHERE id = $1 AND estado = $2`
	result, err := r.pool.Exec(ctx, query, offerID, lifecycle.OfferEnviada, lifecycle.OfferExpirada, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to expire offer: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
