// Package service implements request intake and lifecycle orchestration.
package service

import (
	"context"
	"time"

	"repuestos_backend/internal/events"
	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/internal/params"
	"repuestos_backend/internal/requests/repository"
	"repuestos_backend/internal/requests/transport"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultMinDesiredOffers = 3

// WaveStarter launches the first escalation wave for a freshly created
// request. Wired after construction to avoid a module cycle.
type WaveStarter interface {
	Start(ctx context.Context, requestID uuid.UUID) error
}

// SettingsSource hands out configuration snapshots.
type SettingsSource interface {
	Snapshot() params.Settings
}

// Service implements the request use cases.
type Service struct {
	repo     *repository.Repository
	settings SettingsSource
	bus      events.Bus
	log      *logger.Logger
	waves    WaveStarter
}

// New creates a requests service.
func New(repo *repository.Repository, settings SettingsSource, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, settings: settings, bus: bus, log: log}
}

// SetWaveStarter wires the escalation entry point.
func (s *Service) SetWaveStarter(w WaveStarter) {
	s.waves = w
}

// Create persists a new request with its items and kicks off the first
// escalation wave. The request is usable even if the wave fails to start; the
// scheduler retries escalation independently.
func (s *Service) Create(ctx context.Context, in transport.CreateRequest) (*repository.Request, []repository.RequestItem, error) {
	settings := s.settings.Snapshot()

	minOffers := in.MinDesiredOffers
	if minOffers == 0 {
		minOffers = defaultMinDesiredOffers
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(settings.OfferTimeoutHours) * time.Hour)
	req := &repository.Request{
		ID:               uuid.New(),
		ClientID:         in.ClientID,
		State:            lifecycle.RequestAbierta,
		CurrentTier:      0,
		OriginCity:       sanitize.Text(in.OriginCity),
		OriginDepartment: sanitize.Text(in.OriginDepartment),
		MinDesiredOffers: minOffers,
		TimeoutHours:     settings.OfferTimeoutHours,
		ExpiresAt:        &expiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	items := make([]repository.RequestItem, 0, len(in.Items))
	for i, it := range in.Items {
		items = append(items, repository.RequestItem{
			ID:          uuid.New(),
			RequestID:   req.ID,
			Name:        sanitize.Text(it.Name),
			Code:        sanitize.TextPtr(it.Code),
			Quantity:    it.Quantity,
			VehicleMake: sanitize.Text(it.VehicleMake),
			VehicleLine: sanitize.Text(it.VehicleLine),
			VehicleYear: it.VehicleYear,
			Notes:       sanitize.TextPtr(it.Notes),
			Position:    i,
		})
	}

	if err := s.repo.CreateWithItems(ctx, req, items); err != nil {
		return nil, nil, err
	}

	s.bus.Publish(ctx, events.RequestCreated{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  req.ID,
		ClientID:   req.ClientID,
		OriginCity: req.OriginCity,
		ItemCount:  len(items),
	})

	if s.waves != nil {
		if err := s.waves.Start(ctx, req.ID); err != nil {
			s.log.Error("failed to start escalation wave", "request_id", req.ID, "error", err)
		}
	}

	return req, items, nil
}

// Get returns a request with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Request, []repository.RequestItem, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return req, items, nil
}

// List returns a page of requests.
func (s *Service) List(ctx context.Context, limit, offset int) ([]repository.Request, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// CloseWithoutOffers closes an open request that attracted no usable offers.
func (s *Service) CloseWithoutOffers(ctx context.Context, id uuid.UUID) error {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.State != lifecycle.RequestAbierta {
		return apperr.Conflict("only open requests can be closed without offers")
	}

	if err := s.repo.TransitionState(ctx, id, lifecycle.RequestAbierta, lifecycle.RequestCerradaSinOfertas, nil); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.RequestClosed{
		BaseEvent: events.NewBaseEvent(),
		RequestID: id,
		State:     string(lifecycle.RequestCerradaSinOfertas),
	})
	return nil
}
