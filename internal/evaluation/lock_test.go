package evaluation

import (
	"context"
	"sync"
	"testing"

	"repuestos_backend/internal/params"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
	"repuestos_backend/platform/redislock"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestController(t *testing.T) (*ConcurrencyController, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewConcurrencyController(redislock.New(client), logger.New("development")), mr
}

func testLockSettings() params.LockSettings {
	return params.LockSettings{TTLSeconds: 60, RetryAttempts: 2, RetryDelayMs: 1}
}

// Many concurrent acquisitions of the same request's lock: exactly one wins,
// the rest report the evaluation-in-progress conflict.
func TestConcurrentAcquisitionsOneWinner(t *testing.T) {
	controller, _ := newTestController(t)
	requestID := uuid.New()

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, conflicts := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := controller.AcquireEvaluationLock(context.Background(), requestID, testLockSettings())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
				_ = release // held until the test ends
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if conflicts != n-1 {
		t.Fatalf("expected %d conflicts, got %d", n-1, conflicts)
	}
}

func TestReleaseAllowsReacquisition(t *testing.T) {
	controller, _ := newTestController(t)
	requestID := uuid.New()

	release, err := controller.AcquireEvaluationLock(context.Background(), requestID, testLockSettings())
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	release()

	release2, err := controller.AcquireEvaluationLock(context.Background(), requestID, testLockSettings())
	if err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	release2()
}

func TestIsEvaluationInProgress(t *testing.T) {
	controller, _ := newTestController(t)
	requestID := uuid.New()

	held, err := controller.IsEvaluationInProgress(context.Background(), requestID)
	if err != nil || held {
		t.Fatalf("no lock expected yet: held=%v err=%v", held, err)
	}

	release, err := controller.AcquireEvaluationLock(context.Background(), requestID, testLockSettings())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	held, err = controller.IsEvaluationInProgress(context.Background(), requestID)
	if err != nil || !held {
		t.Fatalf("lock expected: held=%v err=%v", held, err)
	}

	release()
	held, err = controller.IsEvaluationInProgress(context.Background(), requestID)
	if err != nil || held {
		t.Fatalf("lock must be gone after release: held=%v err=%v", held, err)
	}
}

// A store outage is not contention: the controller proceeds without a lock
// instead of refusing every evaluation.
func TestStoreOutageFailsOpen(t *testing.T) {
	controller, mr := newTestController(t)
	mr.Close()

	release, err := controller.AcquireEvaluationLock(context.Background(), uuid.New(), testLockSettings())
	if err != nil {
		t.Fatalf("store outage must fail open, got %v", err)
	}
	release()
}

// Different requests never contend with each other.
func TestLocksAreScopedPerRequest(t *testing.T) {
	controller, _ := newTestController(t)

	releaseA, err := controller.AcquireEvaluationLock(context.Background(), uuid.New(), testLockSettings())
	if err != nil {
		t.Fatalf("first request lock failed: %v", err)
	}
	defer releaseA()

	releaseB, err := controller.AcquireEvaluationLock(context.Background(), uuid.New(), testLockSettings())
	if err != nil {
		t.Fatalf("second request lock must be independent: %v", err)
	}
	defer releaseB()
}
