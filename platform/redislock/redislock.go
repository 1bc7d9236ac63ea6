// Package redislock provides a distributed mutual-exclusion primitive backed
// by any Redis-compatible store. Acquisition is a conditional SET NX with a
// TTL; release is an atomic compare-and-delete so a stale holder can never
// remove a lock that has since been re-acquired by someone else.
// This is part of the platform layer and contains no business logic.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock key is already held.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// Locker acquires and releases keyed locks on a shared Redis store.
type Locker struct {
	client redis.UniversalClient
}

// New creates a Locker on the given client.
func New(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Acquire attempts a single conditional set of key with a random holder token
// and the given TTL. Returns ErrNotAcquired when the key is already held, or
// the underlying store error when the store is unreachable.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotAcquired
	}
	return token, nil
}

// Release removes the key only if its current value still equals token.
// Returns true when the lock was released by this call.
func (l *Locker) Release(ctx context.Context, key, token string) (bool, error) {
	res, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// IsHeld reports whether a non-expired lock currently exists for key.
func (l *Locker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
