// Package offers provides the offer (oferta) domain module.
package offers

import (
	advrepo "repuestos_backend/internal/advisors/repository"
	"repuestos_backend/internal/events"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/internal/offers/handler"
	"repuestos_backend/internal/offers/repository"
	"repuestos_backend/internal/offers/service"
	"repuestos_backend/internal/params"
	reqrepo "repuestos_backend/internal/requests/repository"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the offers domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new offers module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, requests *reqrepo.Repository, advisors *advrepo.Repository, store *params.Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, requests, advisors, store, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "offers"
}

// Service returns the service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetEvaluationGuard wires the evaluation lock check into submission.
func (m *Module) SetEvaluationGuard(g service.EvaluationGuard) {
	m.service.SetEvaluationGuard(g)
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/offers"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
