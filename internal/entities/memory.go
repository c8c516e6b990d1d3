package entities

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps entities in process memory. Records are cloned on the
// way in and out.
type MemoryRepository struct {
	mu        sync.RWMutex
	records   map[uuid.UUID]*Entity
	revisions map[uuid.UUID][]*Revision
	now       func() time.Time
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryClock overrides the bookkeeping clock.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(r *MemoryRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	repo := &MemoryRepository{
		records:   make(map[uuid.UUID]*Entity),
		revisions: make(map[uuid.UUID][]*Revision),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (r *MemoryRepository) Create(_ context.Context, record *Entity) (*Entity, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}
	if record.EntityType == "" {
		return nil, ErrEntityTypeRequired
	}
	rec := record.Clone()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.RevisionLog = ""
	normalize(rec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return rec.Clone(), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, &NotFoundError{Resource: "entity", Key: id.String()}
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, record *Entity) (*Entity, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "entity", Key: record.ID.String()}
	}
	rec := record.Clone()
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = r.now().UTC()
	normalize(rec)

	if rec.RevisionLog != "" {
		revision := NewRevision(rec, rec.RevisionLog, rec.UpdatedAt)
		r.revisions[rec.ID] = append(r.revisions[rec.ID], revision)
		rec.RevisionLog = ""
	}
	r.records[rec.ID] = rec
	return rec.Clone(), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entity, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) ListDue(_ context.Context, query DueQuery) ([]*Entity, error) {
	if err := query.validate(); err != nil {
		return nil, err
	}
	until := query.Until.UTC()

	r.mu.RLock()
	out := make([]*Entity, 0)
	for _, rec := range r.records {
		if rec.EntityType != query.EntityType {
			continue
		}
		due := rec.ScheduledAt(query.Action)
		if due == nil || due.After(until) {
			continue
		}
		out = append(out, rec.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		left := out[i].ScheduledAt(query.Action)
		right := out[j].ScheduledAt(query.Action)
		if !left.Equal(*right) {
			return left.Before(*right)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) CreateRevision(_ context.Context, record *Revision) (*Revision, error) {
	if record == nil {
		return nil, ErrEntityRequired
	}
	rec := *record
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions[rec.EntityID] = append(r.revisions[rec.EntityID], &rec)
	copied := rec
	return &copied, nil
}

func (r *MemoryRepository) ListRevisions(_ context.Context, entityID uuid.UUID) ([]*Revision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.revisions[entityID]
	out := make([]*Revision, 0, len(stored))
	for _, rev := range stored {
		copied := *rev
		out = append(out, &copied)
	}
	return out, nil
}
