package evaluation

import (
	"repuestos_backend/internal/events"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/redislock"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module represents the evaluation domain module.
type Module struct {
	handler   *Handler
	service   *Service
	responses *ResponseProcessor
}

// NewModule creates a new evaluation module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, redisClient redis.UniversalClient, store *params.Store, bus events.Bus, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	controller := NewConcurrencyController(redislock.New(redisClient), log)
	engine := NewEngine(repo, bus, log)
	svc := NewService(controller, engine, store, log)
	return &Module{
		handler:   NewHandler(svc),
		service:   svc,
		responses: NewResponseProcessor(repo, bus, log),
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "evaluation"
}

// Service returns the service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.service
}

// ResponseProcessor returns the client-response use case.
func (m *Module) ResponseProcessor() *ResponseProcessor {
	return m.responses
}

// RegisterRoutes registers the module's admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
