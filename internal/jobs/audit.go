package jobs

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Audit outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeFault     = "fault"
	OutcomeCompleted = "completed"
)

// AuditEvent captures a change applied or attempted by the scheduler.
type AuditEvent struct {
	EntityType string
	EntityID   string
	Action     string
	Outcome    string
	Message    string
	OccurredAt time.Time
	Metadata   map[string]any
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context) ([]AuditEvent, error)
	Clear(ctx context.Context) error
}

// AuditPruner removes events older than a cutoff.
type AuditPruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// InMemoryAuditRecorder accumulates audit events in-memory for tests.
type InMemoryAuditRecorder struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
}

// NewInMemoryAuditRecorder constructs an empty recorder.
func NewInMemoryAuditRecorder() *InMemoryAuditRecorder {
	return &InMemoryAuditRecorder{}
}

// Record stores the supplied event.
func (r *InMemoryAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	copied := event
	if copied.Metadata != nil {
		copied.Metadata = maps.Clone(copied.Metadata)
	}
	r.events = append(r.events, copied)
	return nil
}

// Events returns a snapshot of recorded audit entries.
func (r *InMemoryAuditRecorder) Events() []AuditEvent {
	events, _ := r.List(context.Background())
	return events
}

// Fail configures the recorder to return the supplied error on subsequent Record calls.
func (r *InMemoryAuditRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// List returns the audit events recorded so far.
func (r *InMemoryAuditRecorder) List(context.Context) ([]AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

// Clear removes all recorded events.
func (r *InMemoryAuditRecorder) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

// Prune removes events that occurred before the cutoff.
func (r *InMemoryAuditRecorder) Prune(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	removed := 0
	for _, event := range r.events {
		if event.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return removed, nil
}
