package main

import (
	"context"
	"crypto/tls"
	"errors"
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
	"repuestos_backend/internal/matching"
	"repuestos_backend/internal/notification"
	"repuestos_backend/internal/offers"
	"repuestos_backend/internal/params"
	"repuestos_backend/internal/requests"
	"repuestos_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

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

	// Worker-side wiring: the same domain services the API uses, minus HTTP.
	advisorsModule := advisors.NewModule(pool, val)
	requestsModule := requests.NewModule(pool, store, eventBus, val, log)
	offersModule := offers.NewModule(pool, requestsModule.Repository(), advisorsModule.Repository(), store, eventBus, val, log)
	evaluationModule := evaluation.NewModule(pool, redisClient, store, eventBus, log)
	matchingEngine := matching.NewEngine(advisorsModule.Repository(), geoResolver, log)

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
	escalationModule.Service().SetEvaluationScheduler(jobClient)

	sweepInterval := time.Duration(cfg.GetSweepIntervalMinutes()) * time.Minute
	periodicSweep := scheduler.NewPeriodicSweep(expirationModule.Sweeper(), sweepInterval, log)
	go periodicSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, escalationModule.Service(), evaluationModule.Service(), expirationModule.Sweeper(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
		return errors.New(name + ": invalid retry attempts")
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
