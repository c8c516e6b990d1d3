package transitions

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/recurrence"
	"github.com/google/uuid"
)

// ScheduleRequest updates the schedule of a stored entity.
type ScheduleRequest struct {
	EntityType       string
	EntityID         uuid.UUID
	PublishAt        *time.Time
	UnpublishAt      *time.Time
	ClearPublishAt   bool
	ClearUnpublishAt bool
	RepeatRule       *string
}

// Schedule loads an entity, applies the request, runs PrepareSave and
// persists the result.
func (c *Coordinator) Schedule(ctx context.Context, req ScheduleRequest) (*entities.Entity, error) {
	adapter, ok := c.Adapter(req.EntityType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, req.EntityType)
	}
	entity, err := adapter.Load(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}

	if req.ClearPublishAt {
		entity.PublishAt = nil
	} else if req.PublishAt != nil {
		entity.PublishAt = cloneTime(req.PublishAt)
	}
	if req.ClearUnpublishAt {
		entity.UnpublishAt = nil
	} else if req.UnpublishAt != nil {
		entity.UnpublishAt = cloneTime(req.UnpublishAt)
	}
	if req.RepeatRule != nil {
		entity.RepeatRule = *req.RepeatRule
	}

	prepared, err := c.PrepareSave(ctx, entity)
	if err != nil {
		return nil, err
	}
	return adapter.Save(ctx, prepared)
}

// PrepareSave applies the save-time scheduling flow to an entity that is
// about to be persisted: default repeat rule, re-arming from the previously
// computed next cycle, validation and the publish_past_date policy. The
// caller persists the returned snapshot.
func (c *Coordinator) PrepareSave(ctx context.Context, entity *entities.Entity) (*entities.Entity, error) {
	if entity == nil {
		return nil, entities.ErrEntityRequired
	}
	now := c.now()

	if c.repeat {
		if entity.RepeatRule == "" {
			entity.RepeatRule = c.types.DefaultRepeat(entity.EntityType)
		}
		if entity.PublishAt == nil && entity.UnpublishAt == nil &&
			entity.NextPublishAt != nil && entity.NextUnpublishAt != nil {
			entity.PublishAt = entity.NextPublishAt
			entity.UnpublishAt = entity.NextUnpublishAt
			entity.NextPublishAt = nil
			entity.NextUnpublishAt = nil
		}
	}

	if err := c.validateSchedule(entity); err != nil {
		return nil, err
	}

	if entity.PublishAt == nil || entity.PublishAt.After(now) || !c.types.Enabled(entity.EntityType, domain.ActionPublish) {
		return entity, nil
	}

	switch c.types.PastDatePolicy(entity.EntityType) {
	case domain.PastDatePublish:
		return c.publishImmediately(ctx, entity)
	case domain.PastDateSchedule:
		return entity, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrPublishDateInPast, entity.PublishAt.UTC().Format(time.RFC3339))
	}
}

func (c *Coordinator) validateSchedule(entity *entities.Entity) error {
	errs := validation.Errors{}
	if entity.PublishAt != nil && entity.UnpublishAt != nil && !entity.UnpublishAt.After(*entity.PublishAt) {
		errs["unpublish_at"] = validation.NewError("validation_unpublish_before_publish", "must be after publish_at")
	}
	if c.repeat && !recurrence.IsNone(entity.RepeatRule) {
		if _, ok := c.rules.Lookup(entity.RepeatRule); !ok {
			errs["repeat_rule"] = validation.NewError("validation_repeat_rule_unknown", "is not a registered recurrence rule")
		}
	}
	if err := errs.Filter(); err != nil {
		return fmt.Errorf("%w: %w", ErrScheduleInvalid, err)
	}
	return nil
}

// publishImmediately runs the immediate publish flow for a past publish date.
func (c *Coordinator) publishImmediately(ctx context.Context, entity *entities.Entity) (*entities.Entity, error) {
	action := domain.ActionPublish

	entity, err := c.dispatch(ctx, events.PrePublishImmediately, action, entity)
	if err != nil {
		return nil, err
	}
	if entity.PublishAt == nil {
		return entity, nil
	}

	firedPublish := cloneTime(entity.PublishAt)
	firedUnpublish := cloneTime(entity.UnpublishAt)

	entity.ChangedAt = *entity.PublishAt
	entity.ClearScheduledAt(action)
	if adapter, ok := c.Adapter(entity.EntityType); ok {
		if err := adapter.Apply(ctx, entity, action); err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}
	} else {
		entity.Status = action.TargetStatus()
	}

	entity, err = c.dispatch(ctx, events.PublishImmediately, action, entity)
	if err != nil {
		return nil, err
	}
	if err := c.rearm(entity, firedPublish, firedUnpublish); err != nil {
		return nil, err
	}
	c.logger.Info("scheduler.transition.immediate", "entity_id", entity.ID, "entity_type", entity.EntityType)
	return entity, nil
}
