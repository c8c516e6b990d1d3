package locks_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/locks"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/goliatone/go-cms-scheduler/pkg/testsupport"
	"github.com/uptrace/bun"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestLockers(t *testing.T) {
	factories := map[string]func(t *testing.T, c *clock) interfaces.Locker{
		"memory": func(_ *testing.T, c *clock) interfaces.Locker {
			return locks.NewInMemory(locks.WithClock(c.Now), locks.WithOwnerGenerator(sequence("mem")))
		},
		"bun": func(t *testing.T, c *clock) interfaces.Locker {
			return locks.NewBunLocker(newTestDB(t), locks.WithBunClock(c.Now), locks.WithBunOwnerGenerator(sequence("bun")))
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
			locker := factory(t, c)

			first, err := locker.Acquire(ctx, "scheduler.sweep", time.Minute)
			if err != nil {
				t.Fatalf("first acquire: %v", err)
			}
			if first.Name() != "scheduler.sweep" || first.Owner() == "" {
				t.Fatalf("unexpected lease %s/%s", first.Name(), first.Owner())
			}
			if !first.ExpiresAt().Equal(c.now.Add(time.Minute)) {
				t.Fatalf("unexpected expiry %v", first.ExpiresAt())
			}

			if _, err := locker.Acquire(ctx, "scheduler.sweep", time.Minute); !errors.Is(err, interfaces.ErrLockHeld) {
				t.Fatalf("expected ErrLockHeld, got %v", err)
			}
			other, err := locker.Acquire(ctx, "scheduler.other", time.Minute)
			if err != nil {
				t.Fatalf("independent lock: %v", err)
			}
			_ = other.Release(ctx)

			if err := first.Release(ctx); err != nil {
				t.Fatalf("release: %v", err)
			}
			if err := first.Release(ctx); err != nil {
				t.Fatalf("second release should be a no-op, got %v", err)
			}

			second, err := locker.Acquire(ctx, "scheduler.sweep", time.Minute)
			if err != nil {
				t.Fatalf("reacquire after release: %v", err)
			}

			c.now = c.now.Add(2 * time.Minute)
			takeover, err := locker.Acquire(ctx, "scheduler.sweep", time.Minute)
			if err != nil {
				t.Fatalf("takeover after expiry: %v", err)
			}
			if takeover.Owner() == second.Owner() {
				t.Fatalf("expected a new owner after takeover")
			}
			if err := second.Release(ctx); !errors.Is(err, interfaces.ErrLeaseLost) {
				t.Fatalf("expected ErrLeaseLost for expired lease, got %v", err)
			}
			if err := takeover.Release(ctx); err != nil {
				t.Fatalf("release takeover: %v", err)
			}
		})
	}
}

func TestAcquireValidatesInput(t *testing.T) {
	locker := locks.NewInMemory()
	if _, err := locker.Acquire(context.Background(), " ", time.Minute); !errors.Is(err, locks.ErrLockNameRequired) {
		t.Fatalf("expected ErrLockNameRequired, got %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "sweep", 0); !errors.Is(err, locks.ErrTTLInvalid) {
		t.Fatalf("expected ErrTTLInvalid, got %v", err)
	}
}

func TestNoOpLockerAlwaysGrants(t *testing.T) {
	locker := locks.NewNoOp()
	for i := 0; i < 2; i++ {
		lease, err := locker.Acquire(context.Background(), "sweep", time.Minute)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if err := lease.Release(context.Background()); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	return testsupport.NewBunDB(t, locks.EnsureSchema)
}
