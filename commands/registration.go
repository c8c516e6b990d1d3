package commands

import (
	"errors"
	"strings"

	internalcommands "github.com/goliatone/go-cms-scheduler/internal/commands"
	auditcmd "github.com/goliatone/go-cms-scheduler/internal/commands/audit"
	schedulecmd "github.com/goliatone/go-cms-scheduler/internal/commands/schedule"
	sweepcmd "github.com/goliatone/go-cms-scheduler/internal/commands/sweep"
	"github.com/goliatone/go-cms-scheduler/internal/di"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// ErrNoHandlers is returned when the container exposes no command handlers.
var ErrNoHandlers = errors.New("commands: no command handlers registered")

// CommandRegistry records command handlers so hosts can expose them via CLI or cron.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// CronRegistrar registers command handlers with a cron scheduler.
type CronRegistrar func(command.HandlerConfig, any) error

// RegistrationOptions configures how handlers are registered during construction.
type RegistrationOptions struct {
	Registry       CommandRegistry
	Dispatcher     CommandDispatcher
	CronRegistrar  CronRegistrar
	LoggerProvider interfaces.LoggerProvider
	// SweepCron overrides Config.Sweep.CronExpression for the sweep handler.
	SweepCron string
	// CleanupAuditCron overrides Config.Audit.CleanupCron for the audit cleanup handler.
	CleanupAuditCron string
}

// RegistrationResult captures the constructed command handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe releases every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	if r == nil {
		return
	}
	for _, sub := range r.Subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	r.Subscriptions = nil
}

// RegisterContainerCommands builds the command handlers exposed by the provided container and
// optionally registers them with registry/dispatcher/cron integrations.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	if container == nil {
		return &RegistrationResult{}, nil
	}

	cfg := container.Config

	provider := opts.LoggerProvider
	if provider == nil {
		provider = container.LoggerProvider()
	}

	if opts.Registry != nil && opts.CronRegistrar != nil {
		if reg, ok := opts.Registry.(interface {
			SetCronRegister(func(command.HandlerConfig, any) error) *command.Registry
		}); ok && reg != nil {
			reg.SetCronRegister(opts.CronRegistrar)
		}
	}

	result := &RegistrationResult{
		Handlers:      make([]any, 0),
		Subscriptions: make([]CommandSubscription, 0),
	}

	var errs error

	register := func(handler any) {
		if handler == nil {
			return
		}
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}

		if opts.CronRegistrar != nil {
			if cronCmd, ok := handler.(command.CronCommand); ok {
				if err := opts.CronRegistrar(cronCmd.CronOptions(), cronCmd.CronHandler()); err != nil {
					errs = errors.Join(errs, err)
				}
			}
		}
	}

	loggerFor := func(module string) interfaces.Logger {
		return internalcommands.CommandLogger(provider, module)
	}

	// Sweep commands.
	if worker := container.JobWorker(); worker != nil {
		expression := firstNonEmpty(opts.SweepCron, cfg.Sweep.CronExpression)
		register(sweepcmd.NewRunSweepHandler(worker, loggerFor("sweep"), sweepcmd.WithCronExpression(expression)))
	}

	// Schedule commands.
	if coordinator := container.Coordinator(); coordinator != nil {
		register(schedulecmd.NewScheduleEntityHandler(coordinator, loggerFor("schedule")))
	}

	// Audit commands.
	if recorder := container.AuditRecorder(); recorder != nil {
		auditLogger := loggerFor("audit")
		register(auditcmd.NewExportAuditHandler(recorder, auditLogger))
		cleanupOpts := []auditcmd.CleanupHandlerOption{
			auditcmd.CleanupWithRetention(cfg.Audit.Retention),
			auditcmd.CleanupWithClock(container.Now),
		}
		if expr := firstNonEmpty(opts.CleanupAuditCron, cfg.Audit.CleanupCron); expr != "" {
			cleanupOpts = append(cleanupOpts, auditcmd.CleanupWithCronExpression(expr))
		}
		register(auditcmd.NewCleanupAuditHandler(recorder, auditLogger, cleanupOpts...))
	}

	if len(result.Handlers) == 0 {
		return result, errors.Join(ErrNoHandlers, errs)
	}

	return result, errs
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
