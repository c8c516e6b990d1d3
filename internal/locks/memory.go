package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrLockNameRequired = errors.New("locks: lock name is required")
	ErrTTLInvalid       = errors.New("locks: ttl must be positive")
)

// NewInMemory creates a process-local locker suitable for tests and single
// instance deployments.
func NewInMemory(opts ...Option) interfaces.Locker {
	mem := &inMemoryLocker{
		now:    time.Now,
		owner:  func() string { return uuid.NewString() },
		leases: make(map[string]heldLease),
	}
	for _, opt := range opts {
		opt(mem)
	}
	return mem
}

// Option allows customizing the behaviour of the in-memory locker.
type Option func(*inMemoryLocker)

// WithClock overrides the internal clock, used mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *inMemoryLocker) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithOwnerGenerator overrides the owner token generator.
func WithOwnerGenerator(generator func() string) Option {
	return func(l *inMemoryLocker) {
		if generator != nil {
			l.owner = generator
		}
	}
}

type heldLease struct {
	owner     string
	expiresAt time.Time
}

type inMemoryLocker struct {
	mu     sync.Mutex
	now    func() time.Time
	owner  func() string
	leases map[string]heldLease
}

func (l *inMemoryLocker) Acquire(_ context.Context, name string, ttl time.Duration) (interfaces.Lease, error) {
	name, err := validate(name, ttl)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.leases[name]; ok && now.Before(current.expiresAt) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrLockHeld, name)
	}
	held := heldLease{owner: l.owner(), expiresAt: now.Add(ttl)}
	l.leases[name] = held
	return &lease{
		name:      name,
		owner:     held.owner,
		expiresAt: held.expiresAt,
		release:   l.release,
	}, nil
}

func (l *inMemoryLocker) release(_ context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.leases[name]
	if !ok || current.owner != owner {
		return interfaces.ErrLeaseLost
	}
	delete(l.leases, name)
	return nil
}

type lease struct {
	name      string
	owner     string
	expiresAt time.Time
	once      sync.Once
	err       error
	release   func(ctx context.Context, name, owner string) error
}

func (l *lease) Name() string         { return l.name }
func (l *lease) Owner() string        { return l.owner }
func (l *lease) ExpiresAt() time.Time { return l.expiresAt }

// Release is idempotent; only the first call reaches the backing store.
func (l *lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx, l.name, l.owner)
	})
	return l.err
}

func validate(name string, ttl time.Duration) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrLockNameRequired
	}
	if ttl <= 0 {
		return "", ErrTTLInvalid
	}
	return name, nil
}
