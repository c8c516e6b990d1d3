package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

const (
	rootModule       = "scheduler"
	sweepModule      = "scheduler.sweep"
	recurrenceModule = "scheduler.recurrence"
	locksModule      = "scheduler.locks"
	commandsModule   = "scheduler.commands"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// SweepLogger returns the logger namespace reserved for sweep execution.
func SweepLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sweepModule)
}

// RecurrenceLogger returns the logger namespace reserved for recurrence rules.
func RecurrenceLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, recurrenceModule)
}

// LocksLogger returns the logger namespace reserved for advisory locks.
func LocksLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, locksModule)
}

// CommandsLogger returns the logger for a command handler. The name is
// appended to the commands namespace.
func CommandsLogger(provider interfaces.LoggerProvider, name string) interfaces.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModuleLogger(provider, commandsModule)
	}
	return ModuleLogger(provider, commandsModule+"."+name)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
