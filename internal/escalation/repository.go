package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Candidate is one advisor's place in a request's tier map, frozen at
// request creation.
type Candidate struct {
	AdvisorID uuid.UUID
	Tier      int
	Composite float64
}

// Repository persists the tier map and the monotonic tier pointer.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an escalation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveCandidates replaces the request's tier map in one transaction.
func (r *Repository) SaveCandidates(ctx context.Context, requestID uuid.UUID, candidates []Candidate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM request_candidates WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("failed to clear candidates: %w", err)
	}

	insert := `
		INSERT INTO request_candidates (request_id, advisor_id, tier, composite, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	now := time.Now()
	for _, c := range candidates {
		if _, err := tx.Exec(ctx, insert, requestID, c.AdvisorID, c.Tier, c.Composite, now); err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListCandidates returns the request's tier map, best tier first.
func (r *Repository) ListCandidates(ctx context.Context, requestID uuid.UUID) ([]Candidate, error) {
	query := `
		SELECT advisor_id, tier, composite FROM request_candidates
		WHERE request_id = $1
		ORDER BY tier ASC, composite DESC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.AdvisorID, &c.Tier, &c.Composite); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return out, nil
}

// AdvanceTier moves the request's tier pointer forward. The conditional
// WHERE keeps the pointer monotonic under concurrent advance tasks; a false
// return means another worker already escalated at least this far.
func (r *Repository) AdvanceTier(ctx context.Context, requestID uuid.UUID, tier int) (bool, error) {
	query := `
		UPDATE requests SET current_tier = $2, escalated_at = $3, updated_at = $3
		WHERE id = $1 AND current_tier < $2`
	result, err := r.pool.Exec(ctx, query, requestID, tier, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to advance tier: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
