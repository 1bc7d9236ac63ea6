package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repuestos_backend/internal/advisors"
	"repuestos_backend/internal/escalation"
	"repuestos_backend/internal/evaluation"
	"repuestos_backend/internal/events"
	"repuestos_backend/internal/expiration"
	"repuestos_backend/internal/geography"
	apphttp "repuestos_backend/internal/http"
	"repuestos_backend/internal/http/router"
	"repuestos_backend/internal/matching"
	"repuestos_backend/internal/notification"
	"repuestos_backend/internal/offers"
	"repuestos_backend/internal/params"
	"repuestos_backend/internal/requests"
	"repuestos_backend/internal/scheduler"
	"repuestos_backend/migrations"
	"repuestos_backend/platform/config"
	"repuestos_backend/platform/db"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	paramsModule := params.NewModule(pool, val, log)
	if err := withRetry(ctx, log, "configuration load", 5, 2*time.Second, func() error {
		return paramsModule.Store().Load(ctx)
	}); err != nil {
		log.Error("failed to load configuration", "error", err)
		panic("failed to load configuration: " + err.Error())
	}
	store := paramsModule.Store()

	geoResolver := geography.NewPGResolver(pool)
	if err := geoResolver.Reload(ctx); err != nil {
		log.Error("failed to load geography mappings", "error", err)
		panic("failed to load geography mappings: " + err.Error())
	}

	advisorsModule := advisors.NewModule(pool, val)
	requestsModule := requests.NewModule(pool, store, eventBus, val, log)
	offersModule := offers.NewModule(pool, requestsModule.Repository(), advisorsModule.Repository(), store, eventBus, val, log)
	evaluationModule := evaluation.NewModule(pool, redisClient, store, eventBus, log)
	matchingEngine := matching.NewEngine(advisorsModule.Repository(), geoResolver, log)

	// Notifications go out over Redis pub/sub; the dispatcher also relays
	// system events published on the in-process bus.
	dispatcher := notification.NewDispatcher(redisClient, log)
	dispatcher.RelaySystemEvents(eventBus)

	jobClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		panic("failed to initialize job client: " + err.Error())
	}
	defer func() { _ = jobClient.Close() }()

	escalationModule := escalation.NewModule(pool, requestsModule.Repository(), offersModule.Repository(),
		matchingEngine, dispatcher, jobClient, store, eventBus, log)
	expirationModule := expiration.NewModule(pool, redisClient, dispatcher, store, eventBus, log)

	// Cross-module wiring (breaks circular dependencies)
	escalationModule.Service().SetEvaluationScheduler(jobClient)
	requestsModule.SetWaveStarter(escalationModule.Service())
	requestsModule.SetResponseProcessor(evaluationModule.ResponseProcessor())
	offersModule.SetEvaluationGuard(evaluationModule.Service())

	statusReporter, err := scheduler.NewStatusReporter(cfg)
	if err != nil {
		log.Error("failed to initialize job status reporter", "error", err)
		panic("failed to initialize job status reporter: " + err.Error())
	}
	defer func() { _ = statusReporter.Close() }()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			advisorsModule,
			paramsModule,
			requestsModule,
			offersModule,
			evaluationModule,
			expirationModule,
			statusReporter,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	} else if opt.TLSConfig == nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
