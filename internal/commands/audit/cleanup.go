package auditcmd

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/jobs"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const cleanupAuditMessageType = "scheduler.audit.cleanup"

// AuditCleaner extends AuditLog with cleanup capabilities.
type AuditCleaner interface {
	AuditLog
	Clear(ctx context.Context) error
}

// ErrPruneUnsupported is returned when OlderThan is set but the audit log
// cannot remove events selectively.
var ErrPruneUnsupported = errors.New("auditcmd: audit log does not support pruning")

// CleanupAuditCommand removes recorded audit events. When OlderThan is set
// only events older than that age are removed. When DryRun is true only the
// event count is reported.
type CleanupAuditCommand struct {
	DryRun    bool          `json:"dry_run,omitempty"`
	OlderThan time.Duration `json:"older_than,omitempty"`
}

// Type implements command.Message.
func (CleanupAuditCommand) Type() string { return cleanupAuditMessageType }

// Validate satisfies command.Message.
func (m CleanupAuditCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.OlderThan, validation.Min(time.Duration(0)).
			Error("older_than must be zero or positive")),
	)
}

type cleanupHandlerConfig struct {
	cronConfig command.HandlerConfig
	timeout    time.Duration
	retention  time.Duration
	now        func() time.Time
}

// CleanupHandlerOption customises the cleanup handler.
type CleanupHandlerOption func(*cleanupHandlerConfig)

// CleanupWithCronConfig overrides the cron registration options for the cleanup handler.
func CleanupWithCronConfig(config command.HandlerConfig) CleanupHandlerOption {
	return func(cfg *cleanupHandlerConfig) {
		cfg.cronConfig = config
	}
}

// CleanupWithCronExpression overrides the cron expression for the cleanup handler.
func CleanupWithCronExpression(expression string) CleanupHandlerOption {
	return func(cfg *cleanupHandlerConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.cronConfig.Expression = trimmed
		}
	}
}

// CleanupWithRetention sets the age used by cron triggered cleanups. Zero
// clears every event.
func CleanupWithRetention(retention time.Duration) CleanupHandlerOption {
	return func(cfg *cleanupHandlerConfig) {
		if retention >= 0 {
			cfg.retention = retention
		}
	}
}

// CleanupWithClock overrides the clock used to compute the prune cutoff.
func CleanupWithClock(now func() time.Time) CleanupHandlerOption {
	return func(cfg *cleanupHandlerConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// CleanupWithTimeout overrides the default execution timeout.
func CleanupWithTimeout(timeout time.Duration) CleanupHandlerOption {
	return func(cfg *cleanupHandlerConfig) {
		cfg.timeout = timeout
	}
}

// CleanupAuditHandler clears audit logs via the supplied cleaner implementation.
type CleanupAuditHandler struct {
	cleaner    AuditCleaner
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
	retention  time.Duration
	now        func() time.Time
}

// NewCleanupAuditHandler constructs a handler that delegates to the provided cleaner instance.
func NewCleanupAuditHandler(cleaner AuditCleaner, logger interfaces.Logger, opts ...CleanupHandlerOption) *CleanupAuditHandler {
	cfg := cleanupHandlerConfig{
		cronConfig: command.HandlerConfig{
			Expression: "@daily",
		},
		timeout: commands.DefaultCommandTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &CleanupAuditHandler{
		cleaner:    cleaner,
		logger:     commands.EnsureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
		retention:  cfg.retention,
		now:        cfg.now,
	}
}

// Execute satisfies command.Commander[CleanupAuditCommand].
func (h *CleanupAuditHandler) Execute(ctx context.Context, msg CleanupAuditCommand) error {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return err
	}
	ctx, cancel, err := commands.PrepareContext(ctx, h.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	events, err := h.cleaner.List(ctx)
	if err != nil {
		return commands.WrapExecuteError(err)
	}

	logger := logging.WithFields(h.logger, map[string]any{
		"operation": "audit.cleanup",
	})

	if msg.OlderThan > 0 {
		return h.prune(ctx, logger, events, msg)
	}

	if msg.DryRun {
		logging.WithFields(logger, map[string]any{
			"dry_run":        true,
			"existing_count": len(events),
		}).Debug("audit.command.cleanup.dry_run")
		return nil
	}

	if err := h.cleaner.Clear(ctx); err != nil {
		return commands.WrapExecuteError(err)
	}

	logging.WithFields(logger, map[string]any{
		"removed": len(events),
	}).Debug("audit.command.cleanup.removed")
	return nil
}

func (h *CleanupAuditHandler) prune(ctx context.Context, logger interfaces.Logger, events []jobs.AuditEvent, msg CleanupAuditCommand) error {
	cutoff := h.now().Add(-msg.OlderThan)

	if msg.DryRun {
		expired := 0
		for _, event := range events {
			if event.OccurredAt.Before(cutoff) {
				expired++
			}
		}
		logging.WithFields(logger, map[string]any{
			"dry_run":        true,
			"existing_count": len(events),
			"expired_count":  expired,
			"cutoff":         cutoff.Format(time.RFC3339),
		}).Debug("audit.command.cleanup.dry_run")
		return nil
	}

	pruner, ok := h.cleaner.(jobs.AuditPruner)
	if !ok {
		return commands.WrapExecuteError(ErrPruneUnsupported)
	}
	removed, err := pruner.Prune(ctx, cutoff)
	if err != nil {
		return commands.WrapExecuteError(err)
	}

	logging.WithFields(logger, map[string]any{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Debug("audit.command.cleanup.removed")
	return nil
}

// CronHandler satisfies command.CronCommand by binding cleanup execution to a cron runner.
func (h *CleanupAuditHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), CleanupAuditCommand{OlderThan: h.retention})
	}
}

// CronOptions satisfies command.CronCommand by returning the configured cron metadata.
func (h *CleanupAuditHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the cleanup handler to CLI integrations.
func (h *CleanupAuditHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for audit cleanup.
func (h *CleanupAuditHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"audit", "cleanup"},
		Group:       "audit",
		Description: "Remove recorded scheduler audit events; supports dry-run and retention",
	}
}
