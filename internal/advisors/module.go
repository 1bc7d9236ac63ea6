// Package advisors provides the advisor (asesor) domain module.
package advisors

import (
	"repuestos_backend/internal/advisors/handler"
	"repuestos_backend/internal/advisors/repository"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the advisors domain module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule creates a new advisors module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(repo, val),
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "advisors"
}

// Repository returns the repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/advisors"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
