package locks

import (
	"context"
	"time"

	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

// NewNoOp returns a locker that grants every request. Use it only when an
// external trigger already guarantees a single sweep at a time.
func NewNoOp() interfaces.Locker {
	return noOpLocker{}
}

type noOpLocker struct{}

func (noOpLocker) Acquire(_ context.Context, name string, ttl time.Duration) (interfaces.Lease, error) {
	return &lease{
		name:      name,
		owner:     "noop",
		expiresAt: time.Now().Add(ttl),
		release:   func(context.Context, string, string) error { return nil },
	}, nil
}
