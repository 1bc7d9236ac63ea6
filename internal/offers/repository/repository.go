package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const offerNotFoundMsg = "offer not found"

// Offer is the database model for an advisor's offer on a request.
type Offer struct {
	ID        uuid.UUID            `db:"id"`
	RequestID uuid.UUID            `db:"request_id"`
	AdvisorID uuid.UUID            `db:"advisor_id"`
	State     lifecycle.OfferState `db:"estado"`
	CreatedAt time.Time            `db:"created_at"`
	UpdatedAt time.Time            `db:"updated_at"`
}

// OfferDetail is one priced line of an offer, matched to a request item.
type OfferDetail struct {
	ID             uuid.UUID `db:"id"`
	OfferID        uuid.UUID `db:"offer_id"`
	RequestItemID  uuid.UUID `db:"request_item_id"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	Quantity       int       `db:"quantity"`
	WarrantyMonths int       `db:"warranty_months"`
	DeliveryDays   int       `db:"delivery_days"`
	Brand          *string   `db:"brand"`
	Origin         *string   `db:"origin"`
	Notes          *string   `db:"notes"`
}

const offerColumns = `id, request_id, advisor_id, estado, created_at, updated_at`

// Repository provides database operations for offers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new offers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithDetails inserts an offer, its details and bumps the advisor's
// offers-made counter in one transaction. Either the whole offer lands or
// none of it does.
func (r *Repository) CreateWithDetails(ctx context.Context, offer *Offer, details []OfferDetail) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO offers (` + offerColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, query,
		offer.ID, offer.RequestID, offer.AdvisorID, offer.State, offer.CreatedAt, offer.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}

	detailQuery := `
		INSERT INTO offer_details (id, offer_id, request_item_id, unit_price_cents, quantity, warranty_months, delivery_days, brand, origin, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, d := range details {
		if _, err := tx.Exec(ctx, detailQuery,
			d.ID, d.OfferID, d.RequestItemID, d.UnitPriceCents, d.Quantity,
			d.WarrantyMonths, d.DeliveryDays, d.Brand, d.Origin, d.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert offer detail: %w", err)
		}
	}

	counter := `UPDATE advisors SET offers_made = offers_made + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, counter, offer.AdvisorID, time.Now()); err != nil {
		return fmt.Errorf("failed to increment offers made: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an offer by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	var o Offer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.RequestID, &o.AdvisorID, &o.State, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(offerNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &o, nil
}

// ListByRequest retrieves a request's offers, oldest first. Submission order
// matters downstream: evaluation ties break toward the earlier offer.
func (r *Repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE request_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.AdvisorID, &o.State, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}
	return out, nil
}

// GetDetails retrieves the priced lines of an offer.
func (r *Repository) GetDetails(ctx context.Context, offerID uuid.UUID) ([]OfferDetail, error) {
	query := `
		SELECT id, offer_id, request_item_id, unit_price_cents, quantity, warranty_months, delivery_days, brand, origin, notes
		FROM offer_details WHERE offer_id = $1`

	rows, err := r.pool.Query(ctx, query, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offer details: %w", err)
	}
	defer rows.Close()

	var out []OfferDetail
	for rows.Next() {
		var d OfferDetail
		if err := rows.Scan(
			&d.ID, &d.OfferID, &d.RequestItemID, &d.UnitPriceCents, &d.Quantity,
			&d.WarrantyMonths, &d.DeliveryDays, &d.Brand, &d.Origin, &d.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan offer detail: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offer details: %w", err)
	}
	return out, nil
}

// CountActiveByRequest counts a request's offers still in play.
func (r *Repository) CountActiveByRequest(ctx context.Context, requestID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM offers WHERE request_id = $1 AND estado = $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, requestID, lifecycle.OfferEnviada).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active offers: %w", err)
	}
	return n, nil
}

// HasOfferFromAdvisor reports whether the advisor already offered on the request.
func (r *Repository) HasOfferFromAdvisor(ctx context.Context, requestID, advisorID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM offers WHERE request_id = $1 AND advisor_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, requestID, advisorID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing offer: %w", err)
	}
	return exists, nil
}

// TransitionState moves an offer along its state machine with a guarded UPDATE.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from, to lifecycle.OfferState) error {
	if err := lifecycle.TransitionOffer(from, to); err != nil {
		return apperr.Wrap(apperr.KindConflict, err.Error(), err)
	}

	query := `UPDATE offers SET estado = $3, updated_at = $4 WHERE id = $1 AND estado = $2`
	result, err := r.pool.Exec(ctx, query, id, from, to, time.Now())
	if err != nil {
		return fmt.Errorf("failed to transition offer state: %w", err)
	}
	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		stErr := &lifecycle.StateTransitionError{Entity: "offer", From: string(current.State), To: string(to)}
		return apperr.Wrap(apperr.KindConflict, stErr.Error(), stErr)
	}
	return nil
}
