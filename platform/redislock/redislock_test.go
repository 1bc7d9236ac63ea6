package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client), mr
}

func TestAcquireAndRelease(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "lock:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	held, err := locker.IsHeld(ctx, "lock:a")
	if err != nil || !held {
		t.Fatalf("expected lock held, got held=%v err=%v", held, err)
	}

	released, err := locker.Release(ctx, "lock:a", token)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !released {
		t.Fatal("expected release to succeed")
	}

	held, err = locker.IsHeld(ctx, "lock:a")
	if err != nil || held {
		t.Fatalf("expected lock free, got held=%v err=%v", held, err)
	}
}

func TestAcquireContended(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "lock:a", time.Minute); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "lock:a", time.Minute); err != ErrNotAcquired {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestReleaseWithWrongTokenIsNoOp(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "lock:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	released, err := locker.Release(ctx, "lock:a", "stale-token")
	if err != nil {
		t.Fatalf("release errored: %v", err)
	}
	if released {
		t.Fatal("release with a foreign token must not remove the lock")
	}

	held, _ := locker.IsHeld(ctx, "lock:a")
	if !held {
		t.Fatal("lock should still be held by the original token")
	}

	if released, _ := locker.Release(ctx, "lock:a", token); !released {
		t.Fatal("original holder should still be able to release")
	}
}

func TestExpiredLockCanBeReacquired(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "lock:a", 50*time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	mr.FastForward(100 * time.Millisecond)

	if _, err := locker.Acquire(ctx, "lock:a", time.Minute); err != nil {
		t.Fatalf("expected reacquire after expiry, got %v", err)
	}
}

func TestAcquireStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := New(client)
	mr.Close()

	if _, err := locker.Acquire(context.Background(), "lock:a", time.Minute); err == nil || err == ErrNotAcquired {
		t.Fatalf("expected a store error, got %v", err)
	}
}
