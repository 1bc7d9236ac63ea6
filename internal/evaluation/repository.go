package evaluation

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

// Repository is the pgx-backed evaluation store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an evaluation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSnapshot reads the request, its items and every active offer with its
// lines. Offers come back in submission order, which the tie-break relies on.
func (r *Repository) LoadSnapshot(ctx context.Context, requestID uuid.UUID) (*Snapshot, error) {
	snap := &Snapshot{RequestID: requestID}

	err := r.pool.QueryRow(ctx, `SELECT estado FROM requests WHERE id = $1`, requestID).Scan(&snap.State)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("request not found")
		}
		return nil, fmt.Errorf("failed to load request state: %w", err)
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT id, name, quantity FROM request_items WHERE request_id = $1 ORDER BY position ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it ItemSnapshot
		if err := itemRows.Scan(&it.ID, &it.Name, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan request item: %w", err)
		}
		snap.Items = append(snap.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request items: %w", err)
	}

	offerRows, err := r.pool.Query(ctx,
		`SELECT id, advisor_id, created_at FROM offers
		 WHERE request_id = $1 AND estado = $2
		 ORDER BY created_at ASC, id ASC`, requestID, lifecycle.OfferEnviada)
	if err != nil {
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}
	defer offerRows.Close()

	index := make(map[uuid.UUID]int)
	for offerRows.Next() {
		var o OfferSnapshot
		if err := offerRows.Scan(&o.ID, &o.AdvisorID, &o.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		index[o.ID] = len(snap.Offers)
		snap.Offers = append(snap.Offers, o)
	}
	if err := offerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}

	if len(snap.Offers) == 0 {
		return snap, nil
	}

	detailRows, err := r.pool.Query(ctx,
		`SELECT d.id, d.offer_id, d.request_item_id, d.unit_price_cents, d.quantity, d.warranty_months, d.delivery_days
		 FROM offer_details d
		 JOIN offers o ON o.id = d.offer_id
		 WHERE o.request_id = $1 AND o.estado = $2`, requestID, lifecycle.OfferEnviada)
	if err != nil {
		return nil, fmt.Errorf("failed to load offer details: %w", err)
	}
	defer detailRows.Close()
	for detailRows.Next() {
		var d DetailSnapshot
		if err := detailRows.Scan(&d.ID, &d.OfferID, &d.RequestItemID, &d.UnitPriceCents, &d.Quantity, &d.WarrantyMonths, &d.DeliveryDays); err != nil {
			return nil, fmt.Errorf("failed to scan offer detail: %w", err)
		}
		if i, ok := index[d.OfferID]; ok {
			snap.Offers[i].Details = append(snap.Offers[i].Details, d)
		}
	}
	if err := detailRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offer details: %w", err)
	}

	return snap, nil
}

// CommitEvaluation writes the whole outcome in one transaction: adjudication
// rows, offer state changes, the request transition and the winners' running
// totals. The request update is guarded on ABIERTA; losing the race to
// another evaluator rolls everything back.
func (r *Repository) CommitEvaluation(ctx context.Context, outcome *Outcome) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	reqUpdate := `
		UPDATE requests
		SET estado = $3, estado_detalle = NULL, evaluated_at = $4, total_adjudicated_cents = $5, updated_at = $4
		WHERE id = $1 AND estado = $2`
	result, err := tx.Exec(ctx, reqUpdate,
		outcome.RequestID, lifecycle.RequestAbierta, lifecycle.RequestEvaluada, now, outcome.TotalCents)
	if err != nil {
		return fmt.Errorf("failed to transition request to evaluated: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("request was evaluated or closed by another process")
	}

	adjInsert := `
		INSERT INTO adjudications (id, request_id, request_item_id, offer_id, offer_detail_id, advisor_id, unit_price_cents, quantity, total_cents, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, adj := range outcome.Adjudications {
		if _, err := tx.Exec(ctx, adjInsert,
			adj.ID, adj.RequestID, adj.RequestItemID, adj.OfferID, adj.OfferDetailID, adj.AdvisorID,
			adj.UnitPriceCents, adj.Quantity, adj.TotalCents, adj.Score, now,
		); err != nil {
			return fmt.Errorf("failed to insert adjudication: %w", err)
		}
	}

	offerUpdate := `UPDATE offers SET estado = $3, updated_at = $4 WHERE id = $1 AND estado = $2`
	for _, id := range outcome.WinningOffers {
		if _, err := tx.Exec(ctx, offerUpdate, id, lifecycle.OfferEnviada, lifecycle.OfferGanadora, now); err != nil {
			return fmt.Errorf("failed to mark offer as winner: %w", err)
		}
	}
	for _, id := range outcome.LosingOffers {
		if _, err := tx.Exec(ctx, offerUpdate, id, lifecycle.OfferEnviada, lifecycle.OfferNoSeleccionada, now); err != nil {
			return fmt.Errorf("failed to mark offer as not selected: %w", err)
		}
	}

	// Winners' running totals, grouped per advisor.
	wonByAdvisor := make(map[uuid.UUID]int64)
	offersWon := make(map[uuid.UUID]bool)
	advisorOfOffer := make(map[uuid.UUID]uuid.UUID)
	for _, adj := range outcome.Adjudications {
		wonByAdvisor[adj.AdvisorID] += adj.TotalCents
		advisorOfOffer[adj.OfferID] = adj.AdvisorID
	}
	wins := make(map[uuid.UUID]int)
	for offerID, advisorID := range advisorOfOffer {
		if !offersWon[offerID] {
			offersWon[offerID] = true
			wins[advisorID]++
		}
	}
	advisorUpdate := `
		UPDATE advisors
		SET offers_won = offers_won + $2, total_sales_cents = total_sales_cents + $3, updated_at = $4
		WHERE id = $1`
	for advisorID, total := range wonByAdvisor {
		if _, err := tx.Exec(ctx, advisorUpdate, advisorID, wins[advisorID], total, now); err != nil {
			return fmt.Errorf("failed to update advisor totals: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkEvaluationFailed flags the request's recoverable failed sub-state. The
// request stays ABIERTA so a later run can retry.
func (r *Repository) MarkEvaluationFailed(ctx context.Context, requestID uuid.UUID, note string) error {
	query := `
		UPDATE requests SET estado_detalle = $3, updated_at = $4
		WHERE id = $1 AND estado = $2`
	detail := StateDetailEvaluationFailed
	if note != "" {
		detail = StateDetailEvaluationFailed + ": " + note
	}
	if _, err := r.pool.Exec(ctx, query, requestID, lifecycle.RequestAbierta, detail, time.Now()); err != nil {
		return fmt.Errorf("failed to mark evaluation as failed: %w", err)
	}
	return nil
}

// CloseWithoutOffers transitions an offer-less request to its terminal state.
func (r *Repository) CloseWithoutOffers(ctx context.Context, requestID uuid.UUID) error {
	query := `
		UPDATE requests SET estado = $3, updated_at = $4
		WHERE id = $1 AND estado = $2`
	result, err := r.pool.Exec(ctx, query,
		requestID, lifecycle.RequestAbierta, lifecycle.RequestCerradaSinOfertas, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close request without offers: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("request is no longer open")
	}
	return nil
}

// WinningOffer is one GANADORA offer in presentation order.
type WinningOffer struct {
	ID        uuid.UUID
	AdvisorID uuid.UUID
	CreatedAt time.Time
}

// ListWinners returns the request's GANADORA offers in the order they were
// presented to the client. Client response indices refer to this order.
func (r *Repository) ListWinners(ctx context.Context, requestID uuid.UUID) ([]WinningOffer, error) {
	query := `
		SELECT id, advisor_id, created_at FROM offers
		WHERE request_id = $1 AND estado = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, requestID, lifecycle.OfferGanadora)
	if err != nil {
		return nil, fmt.Errorf("failed to list winning offers: %w", err)
	}
	defer rows.Close()

	var out []WinningOffer
	for rows.Next() {
		var w WinningOffer
		if err := rows.Scan(&w.ID, &w.AdvisorID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan winning offer: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winning offers: %w", err)
	}
	return out, nil
}

// ApplyClientDecision moves the touched offers and the request in one
// transaction. Partial application is never observable.
func (r *Repository) ApplyClientDecision(ctx context.Context, requestID uuid.UUID, accepted, rejected []uuid.UUID, finalState lifecycle.RequestState) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	offerUpdate := `UPDATE offers SET estado = $3, updated_at = $4 WHERE id = $1 AND estado = $2`
	for _, id := range accepted {
		result, err := tx.Exec(ctx, offerUpdate, id, lifecycle.OfferGanadora, lifecycle.OfferAceptada, now)
		if err != nil {
			return fmt.Errorf("failed to accept offer: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.Conflict("offer is no longer awaiting the client's decision")
		}
	}
	for _, id := range rejected {
		result, err := tx.Exec(ctx, offerUpdate, id, lifecycle.OfferGanadora, lifecycle.OfferRechazada, now)
		if err != nil {
			return fmt.Errorf("failed to reject offer: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.Conflict("offer is no longer awaiting the client's decision")
		}
	}

	reqUpdate := `UPDATE requests SET estado = $3, updated_at = $4 WHERE id = $1 AND estado = $2`
	result, err := tx.Exec(ctx, reqUpdate, requestID, lifecycle.RequestEvaluada, finalState, now)
	if err != nil {
		return fmt.Errorf("failed to finalize request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("request is not awaiting a client decision")
	}

	return tx.Commit(ctx)
}
