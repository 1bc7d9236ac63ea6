// Package requests provides the parts-request (solicitud) domain module.
package requests

import (
	"repuestos_backend/internal/events"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/internal/params"
	"repuestos_backend/internal/requests/handler"
	"repuestos_backend/internal/requests/repository"
	"repuestos_backend/internal/requests/service"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the requests domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new requests module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, store *params.Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, store, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "requests"
}

// Service returns the service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetWaveStarter wires the escalation entry point.
func (m *Module) SetWaveStarter(w service.WaveStarter) {
	m.service.SetWaveStarter(w)
}

// SetResponseProcessor wires the evaluation module's client-response use case.
func (m *Module) SetResponseProcessor(p handler.ResponseProcessor) {
	m.handler.SetResponseProcessor(p)
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/requests"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
