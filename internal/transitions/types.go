package transitions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/google/uuid"
)

var (
	ErrTypeNotEnabled     = errors.New("transitions: entity type not enabled for action")
	ErrMissingDate        = errors.New("transitions: scheduled date missing")
	ErrAdapterRequired    = errors.New("transitions: entity adapter is required")
	ErrAdapterNotFound    = errors.New("transitions: no adapter for entity type")
	ErrAdapterExists      = errors.New("transitions: adapter already registered for entity type")
	ErrEntityTypeMismatch = errors.New("transitions: entity type does not match adapter")
	ErrPublishDateInPast  = errors.New("transitions: publish date is in the past")
	ErrScheduleInvalid    = errors.New("transitions: schedule is invalid")
)

const candidatesFailedCode = "SCHEDULER_CANDIDATES_FAILED"

// Candidate identifies an entity that may be due for an action.
type Candidate struct {
	EntityType string
	ID         uuid.UUID
	DueAt      time.Time
}

func (c Candidate) key() string {
	return c.EntityType + ":" + c.ID.String()
}

// EntityAdapter is the storage boundary for one entity type.
type EntityAdapter interface {
	EntityType() string
	// Candidates returns entities whose timestamp for action is set and not
	// after now.
	Candidates(ctx context.Context, action domain.Action, now time.Time) ([]Candidate, error)
	Load(ctx context.Context, id uuid.UUID) (*entities.Entity, error)
	Save(ctx context.Context, entity *entities.Entity) (*entities.Entity, error)
	CreateRevision(ctx context.Context, entity *entities.Entity, message string) error
	Apply(ctx context.Context, entity *entities.Entity, action domain.Action) error
}

// AllowPredicate vetoes a transition by returning false.
type AllowPredicate func(ctx context.Context, entity *entities.Entity, action domain.Action) bool

// CandidateAugmenter may add candidates to a sweep.
type CandidateAugmenter func(ctx context.Context, action domain.Action, now time.Time, candidates []Candidate) ([]Candidate, error)

// CandidateFilter may remove or reorder candidates after augmentation.
type CandidateFilter func(ctx context.Context, action domain.Action, candidates []Candidate) ([]Candidate, error)

// Dispatcher delivers notifications and returns the resulting snapshot.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, action domain.Action, entity *entities.Entity) (*entities.Entity, error)
}

// RuleBridge forwards transitions to an external rule engine.
type RuleBridge interface {
	Bridge(ctx context.Context, entity *entities.Entity, action domain.Action) error
}

// TypeSettings exposes the per-type scheduling configuration.
type TypeSettings interface {
	Enabled(entityType string, action domain.Action) bool
	Revision(entityType string, action domain.Action) bool
	PastDatePolicy(entityType string) domain.PastDatePolicy
	DefaultRepeat(entityType string) string
}

// Observer is notified about transition outcomes.
type Observer interface {
	TransitionApplied(ctx context.Context, action domain.Action, entity *entities.Entity)
	TransitionFailed(ctx context.Context, fault *Fault)
}

// Fault reports a per-entity failure. Faults never abort a sweep.
type Fault struct {
	Action     domain.Action
	EntityID   uuid.UUID
	EntityType string
	Title      string
	Err        error
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("scheduler %s of %s %s (%q): %v", f.Action, f.EntityType, f.EntityID, f.Title, f.Err)
}

func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// ActionResult summarises one action sweep.
type ActionResult struct {
	Action       domain.Action
	Candidates   int
	Transitioned int
	Vetoed       int
	Deferred     int
	Faults       []*Fault
}

// Changed reports whether at least one entity transitioned.
func (r ActionResult) Changed() bool {
	return r.Transitioned > 0
}

// SweepResult summarises a publish sweep followed by an unpublish sweep.
type SweepResult struct {
	Published   bool
	Unpublished bool
	Actions     []ActionResult
}

// Faults returns every fault reported by the sweep in processing order.
func (r SweepResult) Faults() []*Fault {
	var out []*Fault
	for _, action := range r.Actions {
		out = append(out, action.Faults...)
	}
	return out
}

func (r *SweepResult) add(result ActionResult) {
	r.Actions = append(r.Actions, result)
	switch result.Action {
	case domain.ActionPublish:
		r.Published = r.Published || result.Changed()
	case domain.ActionUnpublish:
		r.Unpublished = r.Unpublished || result.Changed()
	}
}
