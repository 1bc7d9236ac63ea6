// Package escalation has no HTTP surface; the module only wires the service
// for the requests module and the scheduler worker.
package escalation

import (
	"repuestos_backend/internal/events"
	"repuestos_backend/internal/matching"
	"repuestos_backend/internal/params"
	reqrepo "repuestos_backend/internal/requests/repository"
	"repuestos_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the escalation domain module.
type Module struct {
	service *Service
}

// NewModule creates a new escalation module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, requests *reqrepo.Repository, offers OfferCounter, engine *matching.Engine, notifier Notifier, scheduler AdvanceScheduler, store *params.Store, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		service: New(repo, requests, offers, engine, notifier, scheduler, store, bus, log),
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "escalation"
}

// Service returns the service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}
