package jobs

import (
	"context"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

// AuditObserver records coordinator outcomes on an AuditRecorder.
type AuditObserver struct {
	recorder AuditRecorder
	logger   interfaces.Logger
	now      func() time.Time
}

var _ transitions.Observer = (*AuditObserver)(nil)

func NewAuditObserver(recorder AuditRecorder, logger interfaces.Logger, clock func() time.Time) *AuditObserver {
	if logger == nil {
		logger = logging.NoOp()
	}
	if clock == nil {
		clock = time.Now
	}
	return &AuditObserver{recorder: recorder, logger: logger, now: clock}
}

func (o *AuditObserver) TransitionApplied(ctx context.Context, action domain.Action, entity *entities.Entity) {
	o.record(ctx, AuditEvent{
		EntityType: entity.EntityType,
		EntityID:   entity.ID.String(),
		Action:     action.String(),
		Outcome:    OutcomeApplied,
		OccurredAt: o.now(),
		Metadata: map[string]any{
			"title":      entity.Title,
			"changed_at": entity.ChangedAt.Format(time.RFC3339),
		},
	})
}

func (o *AuditObserver) TransitionFailed(ctx context.Context, fault *transitions.Fault) {
	if fault == nil {
		return
	}
	message := ""
	if fault.Err != nil {
		message = fault.Err.Error()
	}
	o.record(ctx, AuditEvent{
		EntityType: fault.EntityType,
		EntityID:   fault.EntityID.String(),
		Action:     fault.Action.String(),
		Outcome:    OutcomeFault,
		Message:    message,
		OccurredAt: o.now(),
		Metadata: map[string]any{
			"title": fault.Title,
		},
	})
}

func (o *AuditObserver) record(ctx context.Context, event AuditEvent) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, event); err != nil {
		o.logger.Warn("scheduler.audit.record_failed", "error", err)
	}
}
