package locker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "user-1", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire: want ErrHeld got=%v", err)
	}
	if _, err := l.Acquire(ctx, "user-2", time.Minute); err != nil {
		t.Fatalf("other key: %v", err)
	}
	release()
	release()
	if _, err := l.Acquire(ctx, "user-1", time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestLocalLockerExpires(t *testing.T) {
	now := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	l := &localLocker{held: map[string]time.Time{}, now: func() time.Time { return now }}

	stale, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	stale()
	if _, err := l.Acquire(context.Background(), "k", time.Second); !errors.Is(err, ErrHeld) {
		t.Fatalf("stale release must not free the new holder: got=%v", err)
	}
	fresh()
}

func TestLocalLockerConcurrentAcquire(t *testing.T) {
	l := NewLocal()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(context.Background(), "same", time.Minute); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("winners: want=1 got=%d", wins)
	}
}
