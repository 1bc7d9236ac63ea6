package params

import (
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the configuration store and its HTTP surface.
type Module struct {
	store   *Store
	handler *Handler
}

// NewModule creates a new params module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	store := NewStore(repo, log)
	return &Module{
		store:   store,
		handler: NewHandler(store, repo, val),
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "params"
}

// Store returns the configuration store for other modules.
func (m *Module) Store() *Store {
	return m.store
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/params"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
