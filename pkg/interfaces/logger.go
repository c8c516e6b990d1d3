package interfaces

import "context"

// Logger is the leveled logger used across the scheduler. Its method set
// matches github.com/goliatone/go-logger so glog loggers plug in directly.
// Arguments after msg are alternating key/value pairs.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider returns the logger for a module name such as
// "scheduler.sweep" or "scheduler.commands.audit".
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can carry persistent fields.
// WithFields returns a child logger; the receiver is left unchanged.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
