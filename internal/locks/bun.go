package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type lockModel struct {
	bun.BaseModel `bun:"table:scheduler_locks"`

	Name       string    `bun:"name,pk"`
	Owner      string    `bun:"owner,notnull"`
	AcquiredAt time.Time `bun:"acquired_at,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
}

// BunLocker stores leases in the scheduler_locks table so sweeps running in
// separate processes exclude each other.
type BunLocker struct {
	db    *bun.DB
	now   func() time.Time
	owner func() string
}

// BunOption configures a BunLocker.
type BunOption func(*BunLocker)

func WithBunClock(clock func() time.Time) BunOption {
	return func(l *BunLocker) {
		if clock != nil {
			l.now = clock
		}
	}
}

func WithBunOwnerGenerator(generator func() string) BunOption {
	return func(l *BunLocker) {
		if generator != nil {
			l.owner = generator
		}
	}
}

func NewBunLocker(db *bun.DB, opts ...BunOption) *BunLocker {
	l := &BunLocker{
		db:    db,
		now:   time.Now,
		owner: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ interfaces.Locker = (*BunLocker)(nil)

// Acquire takes over an expired row or inserts a new one. Both statements
// are conditional, so concurrent callers cannot both succeed.
func (l *BunLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (interfaces.Lease, error) {
	name, err := validate(name, ttl)
	if err != nil {
		return nil, err
	}
	now := l.now().UTC()
	record := &lockModel{
		Name:       name,
		Owner:      l.owner(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	res, err := l.db.NewUpdate().
		Model(record).
		Column("owner", "acquired_at", "expires_at").
		Where("name = ?", name).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("locks: take over %s: %w", name, err)
	}
	if affected(res) == 0 {
		res, err = l.db.NewInsert().Model(record).Ignore().Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("locks: insert %s: %w", name, err)
		}
		if affected(res) == 0 {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrLockHeld, name)
		}
	}

	return &lease{
		name:      name,
		owner:     record.Owner,
		expiresAt: record.ExpiresAt,
		release:   l.release,
	}, nil
}

func (l *BunLocker) release(ctx context.Context, name, owner string) error {
	res, err := l.db.NewDelete().
		Model((*lockModel)(nil)).
		Where("name = ?", name).
		Where("owner = ?", owner).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("locks: release %s: %w", name, err)
	}
	if affected(res) == 0 {
		return interfaces.ErrLeaseLost
	}
	return nil
}

// EnsureSchema creates the scheduler_locks table when missing.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*lockModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("locks: create table: %w", err)
	}
	return nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffected) int64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
