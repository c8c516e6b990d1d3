package commands

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// TelemetryStatus is the outcome category of one command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusSkipped      TelemetryStatus = "skipped"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo describes a command execution outcome.
type TelemetryInfo struct {
	Command    string
	Operation  string
	Fields     map[string]any
	Duration   time.Duration
	Error      error
	SkipReason string
	Status     TelemetryStatus
	Logger     interfaces.Logger
}

// Telemetry is invoked after every execution attempt.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs command outcomes with duration.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = EnsureLogger(logger)
	return func(ctx context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logger.WithContext(ctx), info.Fields)
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("scheduler.command.telemetry.success", args...)
		case TelemetryStatusSkipped:
			entry.Info("scheduler.command.telemetry.skipped", append(args, "reason", info.SkipReason)...)
		case TelemetryStatusContextError:
			entry.Warn("scheduler.command.telemetry.context_error", append(args, "error", info.Error)...)
		default:
			entry.Error("scheduler.command.telemetry.failed", append(args, "error", info.Error)...)
		}
	}
}

// CommandLogger returns the logger for a command module, tagged with the
// fields every scheduler command shares.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	return logging.WithFields(logging.CommandsLogger(provider, name), map[string]any{
		"component":      "command",
		"command_module": name,
	})
}

// EnsureLogger defaults a nil logger to the no-op logger.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}

func statusFor(err error) (TelemetryStatus, string) {
	if err == nil {
		return TelemetryStatusSuccess, ""
	}
	if reason, ok := SkipReason(err); ok {
		return TelemetryStatusSkipped, reason
	}
	if isContextError(err) {
		return TelemetryStatusContextError, ""
	}
	return TelemetryStatusFailed, ""
}
