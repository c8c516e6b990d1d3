package sweepcmd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	runSweepMessageType = "scheduler.sweep.run"

	// DefaultCronExpression triggers a sweep every five minutes.
	DefaultCronExpression = "@every 5m"
)

// Runner executes a locked sweep. jobs.Worker satisfies it.
type Runner interface {
	Process(ctx context.Context, actions ...domain.Action) (transitions.SweepResult, error)
}

// RunSweepCommand triggers a sweep. An empty Action runs publish then unpublish.
type RunSweepCommand struct {
	Action string `json:"action,omitempty"`
}

// Type implements command.Message.
func (RunSweepCommand) Type() string { return runSweepMessageType }

// Validate ensures the optional action names a known transition.
func (m RunSweepCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Action, validation.By(func(value any) error {
			if strings.TrimSpace(m.Action) == "" {
				return nil
			}
			if _, ok := domain.ParseAction(m.Action); !ok {
				return validation.NewError("scheduler.sweep.action_invalid", "action must be publish or unpublish")
			}
			return nil
		})),
	)
}

func (m RunSweepCommand) actions() []domain.Action {
	action, ok := domain.ParseAction(m.Action)
	if !ok {
		return nil
	}
	return []domain.Action{action}
}

// Option customises the sweep handler.
type Option func(*RunSweepHandler)

// WithCronExpression overrides the cron expression used when the handler is
// registered with a cron runner.
func WithCronExpression(expression string) Option {
	return func(h *RunSweepHandler) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			h.cronConfig.Expression = trimmed
		}
	}
}

// WithTimeout bounds each sweep. Sweeps run to completion unless a timeout
// is set here or the caller's context carries a deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(h *RunSweepHandler) {
		h.handlerOpts = append(h.handlerOpts, commands.WithTimeout[RunSweepCommand](timeout))
	}
}

// WithTelemetry reports every sweep execution to the supplied callback.
func WithTelemetry(telemetry commands.Telemetry[RunSweepCommand]) Option {
	return func(h *RunSweepHandler) {
		h.handlerOpts = append(h.handlerOpts, commands.WithTelemetry(telemetry))
	}
}

// RunSweepHandler runs sweeps through the worker. A sweep skipped because
// another instance holds the lock is not reported as a failure.
type RunSweepHandler struct {
	inner       *commands.Handler[RunSweepCommand]
	cronConfig  command.HandlerConfig
	handlerOpts []commands.HandlerOption[RunSweepCommand]

	mu   sync.Mutex
	last transitions.SweepResult
}

// NewRunSweepHandler constructs a handler wired to the provided runner.
func NewRunSweepHandler(runner Runner, logger interfaces.Logger, opts ...Option) *RunSweepHandler {
	logger = commands.EnsureLogger(logger)
	h := &RunSweepHandler{
		cronConfig: command.HandlerConfig{
			Expression: DefaultCronExpression,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	exec := func(ctx context.Context, msg RunSweepCommand) error {
		result, err := runner.Process(ctx, msg.actions()...)
		if errors.Is(err, interfaces.ErrLockHeld) {
			return commands.Skip("lock_held", err)
		}
		h.mu.Lock()
		h.last = result
		h.mu.Unlock()
		if err != nil {
			return err
		}
		logging.WithFields(logger, map[string]any{
			"published":   result.Published,
			"unpublished": result.Unpublished,
			"faults":      len(result.Faults()),
		}).Info("scheduler.sweep.command.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[RunSweepCommand]{
		commands.WithLogger[RunSweepCommand](logger),
		commands.WithOperation[RunSweepCommand]("sweep.run"),
		commands.WithTimeout[RunSweepCommand](0),
	}
	handlerOpts = append(handlerOpts, h.handlerOpts...)
	h.inner = commands.NewHandler(exec, handlerOpts...)
	return h
}

// Execute satisfies command.Commander[RunSweepCommand].
func (h *RunSweepHandler) Execute(ctx context.Context, msg RunSweepCommand) error {
	return h.inner.Execute(ctx, msg)
}

// LastResult returns the outcome of the most recent sweep that acquired the lock.
func (h *RunSweepHandler) LastResult() transitions.SweepResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// CronHandler satisfies command.CronCommand by binding a full sweep to a cron runner.
func (h *RunSweepHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), RunSweepCommand{})
	}
}

// CronOptions satisfies command.CronCommand by returning the configured cron metadata.
func (h *RunSweepHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the sweep handler to CLI integrations.
func (h *RunSweepHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for the sweep command.
func (h *RunSweepHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"sweep", "run"},
		Group:       "sweep",
		Description: "Publish and unpublish entities whose scheduled dates have passed",
	}
}
