package rulebridge

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/google/uuid"
)

const transitionMessageType = "scheduler.transition.observed"

var ErrEntityRequired = errors.New("rulebridge: entity is required")

// TransitionMessage describes a transition the scheduler just applied. It is
// dispatched through go-command so rule engines can subscribe to it.
type TransitionMessage struct {
	EntityType      string        `json:"entity_type"`
	EntityID        uuid.UUID     `json:"entity_id"`
	Title           string        `json:"title,omitempty"`
	Action          domain.Action `json:"action"`
	Status          domain.Status `json:"status"`
	ChangedAt       time.Time     `json:"changed_at"`
	RepeatRule      string        `json:"repeat_rule,omitempty"`
	NextPublishAt   *time.Time    `json:"next_publish_at,omitempty"`
	NextUnpublishAt *time.Time    `json:"next_unpublish_at,omitempty"`
}

// Type implements command.Message.
func (TransitionMessage) Type() string { return transitionMessageType }

// Validate ensures the message identifies an entity and a known action.
func (m TransitionMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.EntityType, validation.Required),
		validation.Field(&m.EntityID, validation.By(func(any) error {
			if m.EntityID == uuid.Nil {
				return validation.NewError("scheduler.transition.entity_id_required", "entity_id is required")
			}
			return nil
		})),
		validation.Field(&m.Action, validation.By(func(any) error {
			if !m.Action.Valid() {
				return validation.NewError("scheduler.transition.action_invalid", "action must be publish or unpublish")
			}
			return nil
		})),
	)
}

// NewTransitionMessage builds the message for an entity after action was applied.
func NewTransitionMessage(entity *entities.Entity, action domain.Action) TransitionMessage {
	return TransitionMessage{
		EntityType:      entity.EntityType,
		EntityID:        entity.ID,
		Title:           entity.Title,
		Action:          action,
		Status:          entity.Status,
		ChangedAt:       entity.ChangedAt,
		RepeatRule:      entity.RepeatRule,
		NextPublishAt:   cloneTime(entity.NextPublishAt),
		NextUnpublishAt: cloneTime(entity.NextUnpublishAt),
	}
}

// DispatchFunc delivers a message to subscribers.
type DispatchFunc func(ctx context.Context, msg TransitionMessage) error

// Option customises the bridge.
type Option func(*Bridge)

// WithDispatchFunc overrides the go-command dispatcher.
func WithDispatchFunc(fn DispatchFunc) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.dispatch = fn
		}
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge forwards applied transitions to go-command's dispatcher.
type Bridge struct {
	dispatch DispatchFunc
	logger   interfaces.Logger
}

// New constructs a bridge that dispatches through the process wide go-command dispatcher.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		dispatch: func(ctx context.Context, msg TransitionMessage) error {
			return dispatcher.Dispatch(ctx, msg)
		},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Bridge satisfies transitions.RuleBridge.
func (b *Bridge) Bridge(ctx context.Context, entity *entities.Entity, action domain.Action) error {
	if entity == nil {
		return ErrEntityRequired
	}
	msg := NewTransitionMessage(entity, action)
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := b.dispatch(ctx, msg); err != nil {
		return err
	}
	logging.WithTransitionContext(b.logger, msg.EntityType, msg.EntityID.String(), action.String()).
		Debug("scheduler.rulebridge.dispatched")
	return nil
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
