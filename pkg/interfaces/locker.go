package interfaces

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockHeld reports that another owner holds an unexpired lease.
	ErrLockHeld = errors.New("locks: lock is held by another owner")
	// ErrLeaseLost reports that a lease expired or was taken over before release.
	ErrLeaseLost = errors.New("locks: lease no longer held")
)

// Locker serialises sweeps across processes. Implementations must grant at
// most one unexpired lease per name.
type Locker interface {
	// Acquire obtains the named lock for ttl or returns ErrLockHeld.
	Acquire(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Name() string
	Owner() string
	ExpiresAt() time.Time
	Release(ctx context.Context) error
}
