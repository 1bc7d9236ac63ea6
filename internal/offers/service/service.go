// Package service implements offer submission with range validation and the
// evaluation-lock gate.
package service

import (
	"context"
	"fmt"
	"time"

	advrepo "repuestos_backend/internal/advisors/repository"
	"repuestos_backend/internal/events"
	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/internal/offers/repository"
	"repuestos_backend/internal/offers/transport"
	"repuestos_backend/internal/params"
	reqrepo "repuestos_backend/internal/requests/repository"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/sanitize"

	"github.com/google/uuid"
)

// RequestSource is the slice of the requests repository the service needs.
type RequestSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*reqrepo.Request, error)
	GetItems(ctx context.Context, requestID uuid.UUID) ([]reqrepo.RequestItem, error)
}

// AdvisorSource is the slice of the advisors repository the service needs.
type AdvisorSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*advrepo.Advisor, error)
}

// EvaluationGuard reports whether a request is currently being evaluated.
// Offers arriving during an evaluation are rejected, not queued.
type EvaluationGuard interface {
	IsEvaluationInProgress(ctx context.Context, requestID uuid.UUID) (bool, error)
}

// SettingsSource hands out configuration snapshots.
type SettingsSource interface {
	Snapshot() params.Settings
}

type itemRef struct {
	ID       uuid.UUID
	Quantity int
}

// Service implements the offer use cases.
type Service struct {
	repo     *repository.Repository
	requests RequestSource
	advisors AdvisorSource
	guard    EvaluationGuard
	settings SettingsSource
	bus      events.Bus
	log      *logger.Logger
}

// New creates an offers service.
func New(repo *repository.Repository, requests RequestSource, advisors AdvisorSource, settings SettingsSource, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, requests: requests, advisors: advisors, settings: settings, bus: bus, log: log}
}

// SetEvaluationGuard wires the evaluation lock check.
func (s *Service) SetEvaluationGuard(g EvaluationGuard) {
	s.guard = g
}

// Submit validates and persists a single offer. All lines are validated
// before anything is written; a single bad line rejects the whole offer.
func (s *Service) Submit(ctx context.Context, in transport.SubmitOfferRequest) (*repository.Offer, []repository.OfferDetail, error) {
	items, err := s.admissible(ctx, in.RequestID, in.AdvisorID)
	if err != nil {
		return nil, nil, err
	}

	settings := s.settings.Snapshot()
	if err := s.validateLines(in.Lines, items, settings); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	offer := &repository.Offer{
		ID:        uuid.New(),
		RequestID: in.RequestID,
		AdvisorID: in.AdvisorID,
		State:     lifecycle.OfferEnviada,
		CreatedAt: now,
		UpdatedAt: now,
	}
	details := make([]repository.OfferDetail, 0, len(in.Lines))
	for _, line := range in.Lines {
		details = append(details, repository.OfferDetail{
			ID:             uuid.New(),
			OfferID:        offer.ID,
			RequestItemID:  line.RequestItemID,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			WarrantyMonths: line.WarrantyMonths,
			DeliveryDays:   line.DeliveryDays,
			Brand:          sanitize.TextPtr(line.Brand),
			Origin:         sanitize.TextPtr(line.Origin),
			Notes:          sanitize.TextPtr(line.Notes),
		})
	}

	if err := s.repo.CreateWithDetails(ctx, offer, details); err != nil {
		return nil, nil, err
	}

	s.bus.Publish(ctx, events.OfferSubmitted{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   offer.ID,
		RequestID: offer.RequestID,
		AdvisorID: offer.AdvisorID,
		Items:     len(details),
	})
	return offer, details, nil
}

// SubmitBulk parses the tabular rows, resolves item names against the
// request, and submits the result as one offer through the same validation
// path as Submit.
func (s *Service) SubmitBulk(ctx context.Context, in transport.BulkOfferRequest) (*repository.Offer, []repository.OfferDetail, error) {
	lines, err := parseBulkRows(in.Rows)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.requests.GetItems(ctx, in.RequestID)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]itemRef, len(items))
	for _, it := range items {
		byName[normalizeItemName(it.Name)] = itemRef{ID: it.ID, Quantity: it.Quantity}
	}

	offerLines, err := matchLinesToItems(lines, byName)
	if err != nil {
		return nil, nil, err
	}

	return s.Submit(ctx, transport.SubmitOfferRequest{
		RequestID: in.RequestID,
		AdvisorID: in.AdvisorID,
		Lines:     offerLines,
	})
}

// Get returns an offer with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Offer, []repository.OfferDetail, error) {
	offer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	details, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return offer, details, nil
}

// admissible checks every precondition that does not depend on line content:
// request open and unexpired, advisor active, no duplicate offer, no
// evaluation running.
func (s *Service) admissible(ctx context.Context, requestID, advisorID uuid.UUID) (map[uuid.UUID]int, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != lifecycle.RequestAbierta {
		return nil, apperr.Conflict("request is not open for offers")
	}
	if req.ExpiresAt != nil && time.Now().After(*req.ExpiresAt) {
		return nil, apperr.Gone("request offer window has expired")
	}

	advisor, err := s.advisors.GetByID(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	if advisor.Status != advrepo.StatusActive {
		return nil, apperr.Forbidden("advisor is not active")
	}

	exists, err := s.repo.HasOfferFromAdvisor(ctx, requestID, advisorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("advisor already submitted an offer for this request")
	}

	if s.guard != nil {
		locked, err := s.guard.IsEvaluationInProgress(ctx, requestID)
		if err != nil {
			// Lock store unreachable: accept the offer rather than block intake.
			s.log.Warn("evaluation lock check failed, accepting offer", "request_id", requestID, "error", err)
		} else if locked {
			return nil, apperr.Conflict("request is being evaluated, offers are closed")
		}
	}

	items, err := s.requests.GetItems(ctx, requestID)
	if err != nil {
		return nil, err
	}
	quantities := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		quantities[it.ID] = it.Quantity
	}
	return quantities, nil
}

// validateLines checks every line against the configured numeric ranges and
// the request's items, collecting all problems before rejecting.
func (s *Service) validateLines(lines []transport.OfferLine, items map[uuid.UUID]int, settings params.Settings) error {
	var problems []string
	seen := make(map[uuid.UUID]bool, len(lines))

	for i, line := range lines {
		requested, ok := items[line.RequestItemID]
		if !ok {
			problems = append(problems, fmt.Sprintf("line %d: item does not belong to the request", i+1))
			continue
		}
		if seen[line.RequestItemID] {
			problems = append(problems, fmt.Sprintf("line %d: item is quoted more than once", i+1))
			continue
		}
		seen[line.RequestItemID] = true

		// Price ranges are configured in pesos; lines carry cents.
		pesos := float64(line.UnitPriceCents) / 100
		if !settings.PriceRange.Contains(pesos) {
			problems = append(problems, fmt.Sprintf("line %d: unit price %.0f outside [%g, %g]",
				i+1, pesos, settings.PriceRange.Min, settings.PriceRange.Max))
		}
		if !settings.QuantityRange.Contains(float64(line.Quantity)) {
			problems = append(problems, fmt.Sprintf("line %d: quantity %d outside [%g, %g]",
				i+1, line.Quantity, settings.QuantityRange.Min, settings.QuantityRange.Max))
		}
		if line.Quantity > requested {
			problems = append(problems, fmt.Sprintf("line %d: quantity %d exceeds requested %d",
				i+1, line.Quantity, requested))
		}
		if !settings.WarrantyRange.Contains(float64(line.WarrantyMonths)) {
			problems = append(problems, fmt.Sprintf("line %d: warranty %d outside [%g, %g]",
				i+1, line.WarrantyMonths, settings.WarrantyRange.Min, settings.WarrantyRange.Max))
		}
		if !settings.DeliveryRange.Contains(float64(line.DeliveryDays)) {
			problems = append(problems, fmt.Sprintf("line %d: delivery %d outside [%g, %g]",
				i+1, line.DeliveryDays, settings.DeliveryRange.Min, settings.DeliveryRange.Max))
		}
	}

	if len(problems) > 0 {
		return apperr.Validation("offer rejected").WithDetails(problems)
	}
	return nil
}
