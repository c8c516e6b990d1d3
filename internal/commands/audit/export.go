package auditcmd

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/jobs"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const exportAuditMessageType = "scheduler.audit.export"

// AuditLog exposes read operations for recorded audit events.
type AuditLog interface {
	List(ctx context.Context) ([]jobs.AuditEvent, error)
}

// ExportAuditCommand retrieves recorded audit events and emits them through the logger.
type ExportAuditCommand struct {
	MaxRecords *int   `json:"max_records,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
}

// Type implements command.Message.
func (ExportAuditCommand) Type() string { return exportAuditMessageType }

// Validate ensures the command payload is well-formed.
func (m ExportAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.MaxRecords, validation.By(func(value any) error {
			if m.MaxRecords == nil {
				return nil
			}
			if *m.MaxRecords < 0 {
				return validation.NewError("scheduler.audit.export.max_records_invalid", "max_records must be zero or positive")
			}
			return nil
		})),
		validation.Field(&m.Outcome, validation.In(jobs.OutcomeApplied, jobs.OutcomeFault, jobs.OutcomeCompleted).
			Error("outcome must be applied, fault or completed")),
	)
}

func (m ExportAuditCommand) matches(event jobs.AuditEvent) bool {
	if entityType := strings.TrimSpace(m.EntityType); entityType != "" && event.EntityType != entityType {
		return false
	}
	if m.Outcome != "" && event.Outcome != m.Outcome {
		return false
	}
	return true
}

// ExportAuditHandler logs recorded audit events up to the provided limit.
type ExportAuditHandler struct {
	log     AuditLog
	logger  interfaces.Logger
	timeout time.Duration
}

// ExportHandlerOption customises the export handler.
type ExportHandlerOption func(*ExportAuditHandler)

// ExportWithTimeout overrides the default execution timeout.
func ExportWithTimeout(timeout time.Duration) ExportHandlerOption {
	return func(h *ExportAuditHandler) {
		h.timeout = timeout
	}
}

// NewExportAuditHandler constructs a handler wired to the provided audit log implementation.
func NewExportAuditHandler(log AuditLog, logger interfaces.Logger, opts ...ExportHandlerOption) *ExportAuditHandler {
	handler := &ExportAuditHandler{
		log:     log,
		logger:  commands.EnsureLogger(logger),
		timeout: commands.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Execute satisfies command.Commander[ExportAuditCommand].
func (h *ExportAuditHandler) Execute(ctx context.Context, msg ExportAuditCommand) error {
	_, err := h.Export(ctx, msg)
	return err
}

// Export returns the events selected by msg after logging each of them.
func (h *ExportAuditHandler) Export(ctx context.Context, msg ExportAuditCommand) ([]jobs.AuditEvent, error) {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return nil, err
	}
	ctx, cancel, err := commands.PrepareContext(ctx, h.timeout)
	defer cancel()
	if err != nil {
		return nil, err
	}

	events, err := h.log.List(ctx)
	if err != nil {
		return nil, commands.WrapExecuteError(err)
	}

	selected := make([]jobs.AuditEvent, 0, len(events))
	for _, event := range events {
		if msg.MaxRecords != nil && len(selected) >= *msg.MaxRecords {
			break
		}
		if msg.matches(event) {
			selected = append(selected, event)
		}
	}

	baseLogger := logging.WithFields(h.logger, map[string]any{
		"operation": "audit.export",
	})

	for idx, event := range selected {
		logging.WithFields(baseLogger, map[string]any{
			"index":       idx,
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID,
			"action":      event.Action,
			"outcome":     event.Outcome,
			"message":     event.Message,
			"occurred_at": event.OccurredAt.Format(time.RFC3339),
			"metadata":    event.Metadata,
		}).Debug("audit.command.export.event")
	}

	logging.WithFields(baseLogger, map[string]any{
		"exported": len(selected),
		"total":    len(events),
	}).Info("audit.command.export.completed")
	return selected, nil
}

// CLIHandler satisfies command.CLICommand by returning the handler.
func (h *ExportAuditHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for audit export.
func (h *ExportAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"audit", "export"},
		Group:       "audit",
		Description: "Export scheduler audit events to the configured logger",
	}
}
