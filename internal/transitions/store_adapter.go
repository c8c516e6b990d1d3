package transitions

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/google/uuid"
)

// StoreAdapter implements EntityAdapter over an entities.Repository.
type StoreAdapter struct {
	entityType string
	repo       entities.Repository
}

var _ EntityAdapter = (*StoreAdapter)(nil)

func NewStoreAdapter(entityType string, repo entities.Repository) *StoreAdapter {
	return &StoreAdapter{entityType: entityType, repo: repo}
}

func (a *StoreAdapter) EntityType() string {
	return a.entityType
}

func (a *StoreAdapter) Candidates(ctx context.Context, action domain.Action, now time.Time) ([]Candidate, error) {
	records, err := a.repo.ListDue(ctx, entities.DueQuery{
		EntityType: a.entityType,
		Action:     action,
		Until:      now,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(records))
	for _, record := range records {
		due := record.ScheduledAt(action)
		if due == nil {
			continue
		}
		out = append(out, Candidate{EntityType: a.entityType, ID: record.ID, DueAt: *due})
	}
	return out, nil
}

func (a *StoreAdapter) Load(ctx context.Context, id uuid.UUID) (*entities.Entity, error) {
	record, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.EntityType != a.entityType {
		return nil, fmt.Errorf("%w: %s is %s", ErrEntityTypeMismatch, id, record.EntityType)
	}
	return record, nil
}

func (a *StoreAdapter) Save(ctx context.Context, entity *entities.Entity) (*entities.Entity, error) {
	return a.repo.Update(ctx, entity)
}

// CreateRevision stages the message; the repository writes the revision
// together with the next save.
func (a *StoreAdapter) CreateRevision(_ context.Context, entity *entities.Entity, message string) error {
	if entity == nil {
		return entities.ErrEntityRequired
	}
	entity.RevisionLog = message
	return nil
}

func (a *StoreAdapter) Apply(_ context.Context, entity *entities.Entity, action domain.Action) error {
	if entity == nil {
		return entities.ErrEntityRequired
	}
	entity.Status = action.TargetStatus()
	return nil
}
