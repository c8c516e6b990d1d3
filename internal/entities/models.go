package entities

import (
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity is the schedulable snapshot the coordinator operates on.
type Entity struct {
	bun.BaseModel `bun:"table:scheduled_entities,alias:se"`

	ID              uuid.UUID      `bun:",pk,type:uuid"                    json:"id"`
	EntityType      string         `bun:"entity_type,notnull"              json:"entity_type"`
	Title           string         `bun:"title,notnull"                    json:"title"`
	Status          domain.Status  `bun:"status,notnull,default:'unpublished'" json:"status"`
	ChangedAt       time.Time      `bun:"changed_at,nullzero"              json:"changed_at"`
	PublishAt       *time.Time     `bun:"publish_at,nullzero"              json:"publish_at,omitempty"`
	UnpublishAt     *time.Time     `bun:"unpublish_at,nullzero"            json:"unpublish_at,omitempty"`
	RepeatRule      string         `bun:"repeat_rule"                      json:"repeat_rule,omitempty"`
	NextPublishAt   *time.Time     `bun:"next_publish_at,nullzero"         json:"next_publish_at,omitempty"`
	NextUnpublishAt *time.Time     `bun:"next_unpublish_at,nullzero"       json:"next_unpublish_at,omitempty"`
	Fields          map[string]any `bun:"fields,type:jsonb"                json:"fields,omitempty"`
	CreatedAt       time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	// RevisionLog stages a revision message that is written alongside the
	// next save.
	RevisionLog string `bun:"-" json:"-"`
}

// Published reports whether the entity is currently visible.
func (e *Entity) Published() bool {
	return e != nil && e.Status == domain.StatusPublished
}

// ScheduledAt returns the timestamp that drives the given action.
func (e *Entity) ScheduledAt(action domain.Action) *time.Time {
	if e == nil {
		return nil
	}
	switch action {
	case domain.ActionPublish:
		return e.PublishAt
	case domain.ActionUnpublish:
		return e.UnpublishAt
	default:
		return nil
	}
}

// ClearScheduledAt removes the timestamp that drives the given action.
func (e *Entity) ClearScheduledAt(action domain.Action) {
	if e == nil {
		return
	}
	switch action {
	case domain.ActionPublish:
		e.PublishAt = nil
	case domain.ActionUnpublish:
		e.UnpublishAt = nil
	}
}

// Clone returns a deep copy so callers never share timestamps or field maps.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	cloned := *e
	cloned.PublishAt = cloneTime(e.PublishAt)
	cloned.UnpublishAt = cloneTime(e.UnpublishAt)
	cloned.NextPublishAt = cloneTime(e.NextPublishAt)
	cloned.NextUnpublishAt = cloneTime(e.NextUnpublishAt)
	if e.Fields != nil {
		cloned.Fields = cloneFields(e.Fields)
	}
	return &cloned
}

// Revision records a historical copy of an entity written by a transition.
type Revision struct {
	bun.BaseModel `bun:"table:scheduled_entity_revisions,alias:ser"`

	ID         uuid.UUID      `bun:",pk,type:uuid"             json:"id"`
	EntityID   uuid.UUID      `bun:"entity_id,notnull,type:uuid" json:"entity_id"`
	EntityType string         `bun:"entity_type,notnull"       json:"entity_type"`
	Title      string         `bun:"title"                     json:"title"`
	Status     domain.Status  `bun:"status,notnull"            json:"status"`
	Message    string         `bun:"message"                   json:"message"`
	ChangedAt  time.Time      `bun:"changed_at,nullzero"       json:"changed_at"`
	Snapshot   map[string]any `bun:"snapshot,type:jsonb"       json:"snapshot,omitempty"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// NewRevision captures the current state of e.
func NewRevision(e *Entity, message string, now time.Time) *Revision {
	snapshot := map[string]any{
		"status":      string(e.Status),
		"repeat_rule": e.RepeatRule,
	}
	if e.PublishAt != nil {
		snapshot["publish_at"] = e.PublishAt.UTC().Format(time.RFC3339)
	}
	if e.UnpublishAt != nil {
		snapshot["unpublish_at"] = e.UnpublishAt.UTC().Format(time.RFC3339)
	}
	if len(e.Fields) > 0 {
		snapshot["fields"] = cloneFields(e.Fields)
	}
	return &Revision{
		ID:         uuid.New(),
		EntityID:   e.ID,
		EntityType: e.EntityType,
		Title:      e.Title,
		Status:     e.Status,
		Message:    message,
		ChangedAt:  e.ChangedAt,
		Snapshot:   snapshot,
		CreatedAt:  now,
	}
}

// cloneFields copies nested maps and slices so a snapshot never aliases the
// stored record.
func cloneFields(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	cloned := make(map[string]any, len(src))
	for key, value := range src {
		cloned[key] = cloneValue(value)
	}
	return cloned
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneFields(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]string:
		if v == nil {
			return v
		}
		out := make(map[string]string, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case []string:
		if v == nil {
			return v
		}
		return append([]string{}, v...)
	case []map[string]any:
		if v == nil {
			return v
		}
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = cloneFields(item)
		}
		return out
	default:
		return value
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// normalize stores every timestamp in UTC so due-date comparisons are
// consistent across drivers.
func normalize(e *Entity) {
	e.Status = e.Status.Normalize()
	e.PublishAt = utcTime(e.PublishAt)
	e.UnpublishAt = utcTime(e.UnpublishAt)
	e.NextPublishAt = utcTime(e.NextPublishAt)
	e.NextUnpublishAt = utcTime(e.NextUnpublishAt)
	if !e.ChangedAt.IsZero() {
		e.ChangedAt = e.ChangedAt.UTC()
	}
}
