package schedulecmd

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
	"github.com/google/uuid"
)

const scheduleEntityMessageType = "scheduler.entity.schedule"

// Scheduler applies schedule updates. transitions.Coordinator satisfies it.
type Scheduler interface {
	Schedule(ctx context.Context, req transitions.ScheduleRequest) (*entities.Entity, error)
}

// ScheduleEntityCommand updates the publish window and repeat rule of a stored entity.
type ScheduleEntityCommand struct {
	EntityType       string     `json:"entity_type"`
	EntityID         uuid.UUID  `json:"entity_id"`
	PublishAt        *time.Time `json:"publish_at,omitempty"`
	UnpublishAt      *time.Time `json:"unpublish_at,omitempty"`
	ClearPublishAt   bool       `json:"clear_publish_at,omitempty"`
	ClearUnpublishAt bool       `json:"clear_unpublish_at,omitempty"`
	RepeatRule       *string    `json:"repeat_rule,omitempty"`
}

// Type implements command.Message.
func (ScheduleEntityCommand) Type() string { return scheduleEntityMessageType }

// Validate ensures required fields and basic payload consistency.
func (m ScheduleEntityCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.EntityType) == "" {
		errs["entity_type"] = validation.NewError("scheduler.entity.schedule.entity_type_required", "entity_type is required")
	}
	if m.EntityID == uuid.Nil {
		errs["entity_id"] = validation.NewError("scheduler.entity.schedule.entity_id_required", "entity_id is required")
	}
	if m.PublishAt != nil && m.PublishAt.IsZero() {
		errs["publish_at"] = validation.NewError("scheduler.entity.schedule.publish_at_invalid", "publish_at must be a valid timestamp when provided")
	}
	if m.UnpublishAt != nil && m.UnpublishAt.IsZero() {
		errs["unpublish_at"] = validation.NewError("scheduler.entity.schedule.unpublish_at_invalid", "unpublish_at must be a valid timestamp when provided")
	}
	if m.ClearPublishAt && m.PublishAt != nil {
		errs["clear_publish_at"] = validation.NewError("scheduler.entity.schedule.publish_at_conflict", "clear_publish_at cannot be combined with publish_at")
	}
	if m.ClearUnpublishAt && m.UnpublishAt != nil {
		errs["clear_unpublish_at"] = validation.NewError("scheduler.entity.schedule.unpublish_at_conflict", "clear_unpublish_at cannot be combined with unpublish_at")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (m ScheduleEntityCommand) request() transitions.ScheduleRequest {
	return transitions.ScheduleRequest{
		EntityType:       strings.TrimSpace(m.EntityType),
		EntityID:         m.EntityID,
		PublishAt:        m.PublishAt,
		UnpublishAt:      m.UnpublishAt,
		ClearPublishAt:   m.ClearPublishAt,
		ClearUnpublishAt: m.ClearUnpublishAt,
		RepeatRule:       m.RepeatRule,
	}
}

// ScheduleEntityHandler runs the save-time scheduling flow for an entity.
type ScheduleEntityHandler struct {
	inner *commands.Handler[ScheduleEntityCommand]
}

// NewScheduleEntityHandler constructs a handler wired to the provided scheduler.
func NewScheduleEntityHandler(scheduler Scheduler, logger interfaces.Logger, opts ...commands.HandlerOption[ScheduleEntityCommand]) *ScheduleEntityHandler {
	exec := func(ctx context.Context, msg ScheduleEntityCommand) error {
		_, err := scheduler.Schedule(ctx, msg.request())
		return err
	}

	handlerOpts := []commands.HandlerOption[ScheduleEntityCommand]{
		commands.WithLogger[ScheduleEntityCommand](logger),
		commands.WithOperation[ScheduleEntityCommand]("entity.schedule"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ScheduleEntityHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ScheduleEntityCommand].
func (h *ScheduleEntityHandler) Execute(ctx context.Context, msg ScheduleEntityCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the schedule handler to CLI integrations.
func (h *ScheduleEntityHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for entity scheduling.
func (h *ScheduleEntityHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"entity", "schedule"},
		Group:       "entity",
		Description: "Set or clear the publish window and repeat rule of an entity",
	}
}
