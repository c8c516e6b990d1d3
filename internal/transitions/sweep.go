package transitions

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
)

type outcome int

const (
	outcomeFault outcome = iota
	outcomeTransitioned
	outcomeVetoed
	outcomeDeferred
)

// process transitions a single candidate. Every failure, including panics
// raised by listeners or adapters, is returned as a fault.
func (c *Coordinator) process(ctx context.Context, action domain.Action, candidate Candidate, now time.Time) (result outcome, fault *Fault) {
	fault = &Fault{Action: action, EntityID: candidate.ID, EntityType: candidate.EntityType}
	fail := func(err error) (outcome, *Fault) {
		fault.Err = err
		return outcomeFault, fault
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result, fault = fail(fmt.Errorf("transitions: panic: %v", recovered))
		}
	}()

	adapter, ok := c.Adapter(candidate.EntityType)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrAdapterNotFound, candidate.EntityType))
	}
	entity, err := adapter.Load(ctx, candidate.ID)
	if err != nil {
		return fail(fmt.Errorf("load: %w", err))
	}
	fault.Title = entity.Title
	ctx = logging.ContextWithTransition(ctx, entity.EntityType, entity.ID.String(), action.String())

	if !c.types.Enabled(candidate.EntityType, action) {
		return fail(ErrTypeNotEnabled)
	}

	if !c.allowed(ctx, entity, action) {
		c.logger.Debug("scheduler.transition.vetoed", "action", action, "entity_id", entity.ID, "entity_type", entity.EntityType)
		return outcomeVetoed, nil
	}

	entity, err = c.dispatch(ctx, events.PreEventFor(action), action, entity)
	if err != nil {
		return fail(err)
	}
	fault.Title = entity.Title

	due := entity.ScheduledAt(action)
	if due == nil {
		return fail(ErrMissingDate)
	}
	if action == domain.ActionUnpublish && entity.PublishAt != nil && !entity.PublishAt.After(now) {
		c.logger.Debug("scheduler.transition.deferred", "entity_id", entity.ID, "publish_at", *entity.PublishAt)
		return outcomeDeferred, nil
	}

	firedPublish := cloneTime(entity.PublishAt)
	firedUnpublish := cloneTime(entity.UnpublishAt)
	scheduled := *due

	entity.ChangedAt = scheduled
	if c.revisions && c.types.Revision(entity.EntityType, action) {
		if err := adapter.CreateRevision(ctx, entity, revisionMessage(action, now, scheduled)); err != nil {
			return fail(fmt.Errorf("create revision: %w", err))
		}
	}
	entity.ClearScheduledAt(action)

	if err := adapter.Apply(ctx, entity, action); err != nil {
		return fail(fmt.Errorf("apply: %w", err))
	}

	rearmErr := c.rearm(entity, firedPublish, firedUnpublish)

	if c.bridge != nil {
		if err := c.bridge.Bridge(ctx, entity, action); err != nil {
			c.logger.Warn("scheduler.rulebridge.failed", "action", action, "entity_id", entity.ID, "error", err)
		}
	}

	entity, err = c.dispatch(ctx, events.PostEventFor(action), action, entity)
	if err != nil {
		return fail(err)
	}

	saved, err := adapter.Save(ctx, entity)
	if err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	if saved == nil {
		saved = entity
	}

	c.logger.Info("scheduler.transition.applied",
		"action", action,
		"entity_id", saved.ID,
		"entity_type", saved.EntityType,
		"changed_at", saved.ChangedAt,
	)
	for _, observer := range c.observers {
		observer.TransitionApplied(ctx, action, saved.Clone())
	}

	if rearmErr != nil {
		fault.Err = rearmErr
		return outcomeTransitioned, fault
	}
	return outcomeTransitioned, nil
}

// allowed evaluates every predicate and ANDs the results.
func (c *Coordinator) allowed(ctx context.Context, entity *entities.Entity, action domain.Action) bool {
	allowed := true
	for _, predicate := range c.allow {
		if !predicate(ctx, entity, action) {
			allowed = false
		}
	}
	return allowed
}

func (c *Coordinator) dispatch(ctx context.Context, name string, action domain.Action, entity *entities.Entity) (*entities.Entity, error) {
	next, err := c.dispatcher.Dispatch(ctx, name, action, entity)
	if err != nil {
		return entity, fmt.Errorf("dispatch %s: %w", name, err)
	}
	if next == nil {
		return entity, nil
	}
	return next, nil
}

// rearm stores the next cycle on the entity when both fired timestamps exist.
// Calendar rules advance in the coordinator's location.
func (c *Coordinator) rearm(entity *entities.Entity, firedPublish, firedUnpublish *time.Time) error {
	if !c.repeat {
		return nil
	}
	next, ok, err := c.rules.Rearm(entity.RepeatRule, c.inLocation(firedPublish), c.inLocation(firedUnpublish))
	if err != nil {
		return fmt.Errorf("rearm: %w", err)
	}
	if !ok {
		return nil
	}
	entity.NextPublishAt = &next.PublishAt
	entity.NextUnpublishAt = &next.UnpublishAt
	c.logger.Debug("scheduler.transition.rearmed",
		"entity_id", entity.ID,
		"rule", entity.RepeatRule,
		"next_publish_at", next.PublishAt,
		"next_unpublish_at", next.UnpublishAt,
	)
	return nil
}

func revisionMessage(action domain.Action, now, scheduled time.Time) string {
	verb := "Published"
	if action == domain.ActionUnpublish {
		verb = "Unpublished"
	}
	return fmt.Sprintf("%s by scheduler at %s. The scheduled %s date was %s.",
		verb,
		now.UTC().Format(time.RFC3339),
		action,
		scheduled.UTC().Format(time.RFC3339),
	)
}

func (c *Coordinator) inLocation(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(c.location)
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
