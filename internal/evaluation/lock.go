package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repuestos_backend/internal/params"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/redislock"

	"github.com/google/uuid"
)

const lockKeyPrefix = "evaluation_lock:"

// lockStore is the slice of redislock.Locker the controller needs.
type lockStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) (bool, error)
	IsHeld(ctx context.Context, key string) (bool, error)
}

// ConcurrencyController guarantees at most one evaluation per request across
// all processes. It retries a bounded number of times before reporting a
// conflict; if the lock store itself is unreachable it fails open, trading
// the at-most-once guarantee for availability.
type ConcurrencyController struct {
	locks lockStore
	log   *logger.Logger
}

// NewConcurrencyController creates a controller over the given lock store.
func NewConcurrencyController(locks lockStore, log *logger.Logger) *ConcurrencyController {
	return &ConcurrencyController{locks: locks, log: log}
}

func lockKey(requestID uuid.UUID) string {
	return lockKeyPrefix + requestID.String()
}

// AcquireEvaluationLock takes the per-request lock and returns a release
// function. Exhausted retries mean another evaluation is running and surface
// as Conflict. A nil error with a no-op release means the store was down and
// the evaluation proceeds unguarded.
func (c *ConcurrencyController) AcquireEvaluationLock(ctx context.Context, requestID uuid.UUID, settings params.LockSettings) (release func(), err error) {
	key := lockKey(requestID)
	ttl := time.Duration(settings.TTLSeconds) * time.Second
	delay := time.Duration(settings.RetryDelayMs) * time.Millisecond

	for attempt := 1; attempt <= settings.RetryAttempts; attempt++ {
		token, err := c.locks.Acquire(ctx, key, ttl)
		if err == nil {
			return c.releaseFunc(key, token), nil
		}

		if !errors.Is(err, redislock.ErrNotAcquired) {
			// Store outage, not contention: proceed without the lock rather
			// than block every evaluation on Redis availability.
			c.log.Warn("evaluation lock store unreachable, proceeding unlocked",
				"request_id", requestID, "error", err)
			return func() {}, nil
		}

		if attempt < settings.RetryAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, apperr.Conflict(fmt.Sprintf("evaluation already in progress for request %s", requestID))
}

func (c *ConcurrencyController) releaseFunc(key, token string) func() {
	return func() {
		// Release must not inherit a cancelled evaluation context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		released, err := c.locks.Release(ctx, key, token)
		if err != nil {
			c.log.Warn("failed to release evaluation lock", "key", key, "error", err)
			return
		}
		if !released {
			// TTL already reclaimed it; nothing to do.
			c.log.Warn("evaluation lock expired before release", "key", key)
		}
	}
}

// IsEvaluationInProgress reports whether the request's lock is currently held.
func (c *ConcurrencyController) IsEvaluationInProgress(ctx context.Context, requestID uuid.UUID) (bool, error) {
	return c.locks.IsHeld(ctx, lockKey(requestID))
}
