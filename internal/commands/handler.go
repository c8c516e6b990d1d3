package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// DefaultCommandTimeout bounds a single command execution.
const DefaultCommandTimeout = 30 * time.Second

// HandlerOption configures a Handler instance.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler wraps command execution with shared scheduler concerns (context, logging, error tagging).
type Handler[T command.Message] struct {
	exec      command.CommandFunc[T]
	logger    interfaces.Logger
	timeout   time.Duration
	operation string
	telemetry Telemetry[T]
	now       func() time.Time
}

// NewHandler creates a handler that satisfies go-command's Commander interface
// while applying validation, logging and timeout enforcement.
func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{
		exec:    fn,
		logger:  logging.NoOp(),
		timeout: DefaultCommandTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute conforms to command.Commander[T].Execute and applies validation, context management,
// logging, and error categorisation before delegating to the wrapped function.
func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return WrapValidationError(err)
	}

	ctx, cancel, err := PrepareContext(ctx, h.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	messageType := command.GetMessageType(msg)
	fields := map[string]any{
		"command": messageType,
	}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	logger := logging.WithFields(h.logger, fields)
	logger.Debug("scheduler.command.start")

	started := h.now()
	err = h.exec(ctx, msg)
	if err == nil {
		err = ctx.Err()
	}
	status, reason := statusFor(err)
	h.emit(ctx, msg, TelemetryInfo{
		Command:    messageType,
		Operation:  h.operation,
		Fields:     fields,
		Duration:   h.now().Sub(started),
		Error:      err,
		SkipReason: reason,
		Status:     status,
		Logger:     logger,
	})

	switch status {
	case TelemetryStatusSuccess:
		logger.Info("scheduler.command.success")
		return nil
	case TelemetryStatusSkipped:
		logger.Info("scheduler.command.skipped", "reason", reason)
		return nil
	case TelemetryStatusContextError:
		logger.Error("scheduler.command.context_error", "error", err)
		return WrapContextError(err)
	default:
		logger.Error("scheduler.command.failed", "error", err)
		return WrapExecuteError(err)
	}
}

// WithTimeout overrides the default execution timeout.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if timeout <= 0 {
			h.timeout = 0
			return
		}
		h.timeout = timeout
	}
}

// WithLogger injects the logger used during execution. Defaults to a no-op logger.
func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.logger = EnsureLogger(logger)
	}
}

// WithOperation sets a human-friendly operation name emitted with every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

// WithTelemetry registers a callback invoked after every execution attempt.
func WithTelemetry[T command.Message](telemetry Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.telemetry = telemetry
	}
}

// WithHandlerClock overrides the clock used to measure execution time.
func WithHandlerClock[T command.Message](now func() time.Time) HandlerOption[T] {
	return func(h *Handler[T]) {
		if now != nil {
			h.now = now
		}
	}
}

func (h *Handler[T]) emit(ctx context.Context, msg T, info TelemetryInfo) {
	if h.telemetry == nil {
		return
	}
	h.telemetry(ctx, msg, info)
}

// PrepareContext applies the timeout to ctx and reports an already finished
// context as a categorised error. Callers must invoke the returned cancel.
func PrepareContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	ctx, cancel := withCommandTimeout(ensureContext(ctx), timeout)
	if err := ctx.Err(); err != nil {
		return ctx, cancel, WrapContextError(err)
	}
	return ctx, cancel, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// withCommandTimeout applies timeout unless it is zero or negative.
func withCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
