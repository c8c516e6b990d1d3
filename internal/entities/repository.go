package entities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrEntityRequired     = errors.New("entities: entity is required")
	ErrEntityTypeRequired = errors.New("entities: entity type is required")
	ErrActionInvalid      = errors.New("entities: action is invalid")
)

// Repository persists schedulable entities.
type Repository interface {
	Create(ctx context.Context, record *Entity) (*Entity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	Update(ctx context.Context, record *Entity) (*Entity, error)
	List(ctx context.Context) ([]*Entity, error)
	// ListDue returns entities of a type whose timestamp for the action is
	// set and not after Until, ordered by that timestamp then id.
	ListDue(ctx context.Context, query DueQuery) ([]*Entity, error)
}

// RevisionRepository persists revisions created by transitions.
type RevisionRepository interface {
	CreateRevision(ctx context.Context, record *Revision) (*Revision, error)
	ListRevisions(ctx context.Context, entityID uuid.UUID) ([]*Revision, error)
}

// DueQuery selects entities that are due for an action.
type DueQuery struct {
	EntityType string
	Action     domain.Action
	Until      time.Time
}

func (q DueQuery) validate() error {
	if q.EntityType == "" {
		return ErrEntityTypeRequired
	}
	if !q.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrActionInvalid, q.Action)
	}
	return nil
}

func (q DueQuery) column() string {
	if q.Action == domain.ActionUnpublish {
		return "unpublish_at"
	}
	return "publish_at"
}

// NotFoundError is returned when an entity lookup misses.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
