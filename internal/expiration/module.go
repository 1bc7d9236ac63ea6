package expiration

import (
	"repuestos_backend/internal/events"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module represents the expiration domain module.
type Module struct {
	handler *Handler
	sweeper *Sweeper
}

// NewModule creates a new expiration module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, redisClient redis.UniversalClient, notifier Notifier, store *params.Store, bus events.Bus, log *logger.Logger) *Module {
	sweeper := NewSweeper(NewRepository(pool), redisClient, notifier, store, bus, log)
	return &Module{
		handler: NewHandler(sweeper),
		sweeper: sweeper,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "expiration"
}

// Sweeper returns the sweeper for the scheduler worker.
func (m *Module) Sweeper() *Sweeper {
	return m.sweeper
}

// RegisterRoutes registers the module's admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
