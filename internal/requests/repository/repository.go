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

const requestNotFoundMsg = "request not found"

// Request is the database model for a parts request (solicitud).
type Request struct {
	ID                    uuid.UUID              `db:"id"`
	ClientID              uuid.UUID              `db:"client_id"`
	State                 lifecycle.RequestState `db:"estado"`
	StateDetail           *string                `db:"estado_detalle"`
	CurrentTier           int                    `db:"current_tier"`
	OriginCity            string                 `db:"origin_city"`
	OriginDepartment      string                 `db:"origin_department"`
	MinDesiredOffers      int                    `db:"min_desired_offers"`
	TimeoutHours          int                    `db:"timeout_hours"`
	EscalatedAt           *time.Time             `db:"escalated_at"`
	EvaluatedAt           *time.Time             `db:"evaluated_at"`
	ExpiresAt             *time.Time             `db:"expires_at"`
	TotalAdjudicatedCents int64                  `db:"total_adjudicated_cents"`
	CreatedAt             time.Time              `db:"created_at"`
	UpdatedAt             time.Time              `db:"updated_at"`
}

// RequestItem is one requested line item, immutable after creation.
type RequestItem struct {
	ID          uuid.UUID `db:"id"`
	RequestID   uuid.UUID `db:"request_id"`
	Name        string    `db:"name"`
	Code        *string   `db:"code"`
	Quantity    int       `db:"quantity"`
	VehicleMake string    `db:"vehicle_make"`
	VehicleLine string    `db:"vehicle_line"`
	VehicleYear *int      `db:"vehicle_year"`
	Notes       *string   `db:"notes"`
	Position    int       `db:"position"`
}

const requestColumns = `id, client_id, estado, estado_detalle, current_tier, origin_city,
		origin_department, min_desired_offers, timeout_hours, escalated_at, evaluated_at,
		expires_at, total_adjudicated_cents, created_at, updated_at`

// Repository provides database operations for requests.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new requests repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithItems inserts a request and its line items in a single transaction.
func (r *Repository) CreateWithItems(ctx context.Context, req *Request, items []RequestItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if _, err := tx.Exec(ctx, query,
		req.ID, req.ClientID, req.State, req.StateDetail, req.CurrentTier, req.OriginCity,
		req.OriginDepartment, req.MinDesiredOffers, req.TimeoutHours, req.EscalatedAt, req.EvaluatedAt,
		req.ExpiresAt, req.TotalAdjudicatedCents, req.CreatedAt, req.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	itemQuery := `
		INSERT INTO request_items (id, request_id, name, code, quantity, vehicle_make, vehicle_line, vehicle_year, notes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.RequestID, item.Name, item.Code, item.Quantity,
			item.VehicleMake, item.VehicleLine, item.VehicleYear, item.Notes, item.Position,
		); err != nil {
			return fmt.Errorf("failed to insert request item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a request by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	var req Request
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.ClientID, &req.State, &req.StateDetail, &req.CurrentTier, &req.OriginCity,
		&req.OriginDepartment, &req.MinDesiredOffers, &req.TimeoutHours, &req.EscalatedAt, &req.EvaluatedAt,
		&req.ExpiresAt, &req.TotalAdjudicatedCents, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(requestNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// GetItems retrieves a request's line items in order.
func (r *Repository) GetItems(ctx context.Context, requestID uuid.UUID) ([]RequestItem, error) {
	query := `
		SELECT id, request_id, name, code, quantity, vehicle_make, vehicle_line, vehicle_year, notes, position
		FROM request_items WHERE request_id = $1
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query request items: %w", err)
	}
	defer rows.Close()

	var items []RequestItem
	for rows.Next() {
		var it RequestItem
		if err := rows.Scan(
			&it.ID, &it.RequestID, &it.Name, &it.Code, &it.Quantity,
			&it.VehicleMake, &it.VehicleLine, &it.VehicleYear, &it.Notes, &it.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request items: %w", err)
	}
	return items, nil
}

// List retrieves requests ordered by creation, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.ClientID, &req.State, &req.StateDetail, &req.CurrentTier, &req.OriginCity,
			&req.OriginDepartment, &req.MinDesiredOffers, &req.TimeoutHours, &req.EscalatedAt, &req.EvaluatedAt,
			&req.ExpiresAt, &req.TotalAdjudicatedCents, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	return out, nil
}

// TransitionState moves a request along its state machine. The UPDATE is
// guarded by the expected source state so concurrent writers cannot race the
// transition; a guard miss surfaces as a StateTransitionError.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from, to lifecycle.RequestState, detail *string) error {
	if err := lifecycle.TransitionRequest(from, to); err != nil {
		return apperr.Wrap(apperr.KindConflict, err.Error(), err)
	}

	query := `
		UPDATE requests SET estado = $3, estado_detalle = $4, updated_at = $5
		WHERE id = $1 AND estado = $2`
	result, err := r.pool.Exec(ctx, query, id, from, to, detail, time.Now())
	if err != nil {
		return fmt.Errorf("failed to transition request state: %w", err)
	}
	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		stErr := &lifecycle.StateTransitionError{Entity: "request", From: string(current.State), To: string(to)}
		return apperr.Wrap(apperr.KindConflict, stErr.Error(), stErr)
	}
	return nil
}
