package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

// Level is the zerolog severity used by console loggers.
type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
	LevelFatal = zerolog.FatalLevel
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ParseLevel maps a configuration string onto a Level.
func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// Options configures the console logger provider.
type Options struct {
	Writer   io.Writer
	TimeFunc func() time.Time
	MinLevel *Level
	// JSON writes one JSON object per entry instead of key=value lines.
	JSON bool
	// Focus restricts output to loggers whose name starts with one of the
	// listed prefixes. Empty means every logger writes.
	Focus []string
}

type provider struct {
	root  zerolog.Logger
	clock func() time.Time
	focus []string
}

// NewProvider builds a zerolog-backed provider writing to stdout at DEBUG
// unless opts says otherwise.
func NewProvider(opts Options) interfaces.LoggerProvider {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	if !opts.JSON {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: true, TimeFormat: consoleTimeFormat}
	}
	level := LevelDebug
	if opts.MinLevel != nil {
		level = *opts.MinLevel
	}
	clock := opts.TimeFunc
	if clock == nil {
		clock = time.Now
	}

	p := &provider{
		root:  zerolog.New(zerolog.SyncWriter(writer)).Level(level),
		clock: clock,
	}
	for _, prefix := range opts.Focus {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			p.focus = append(p.focus, trimmed)
		}
	}
	return p
}

func (p *provider) GetLogger(name string) interfaces.Logger {
	if !p.focused(name) {
		return &consoleLogger{clock: p.clock, zl: zerolog.Nop()}
	}
	return &consoleLogger{
		clock: p.clock,
		zl:    p.root.With().Str("logger", name).Logger(),
	}
}

func (p *provider) focused(name string) bool {
	if len(p.focus) == 0 {
		return true
	}
	for _, prefix := range p.focus {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

type consoleLogger struct {
	clock func() time.Time
	zl    zerolog.Logger
	ctx   context.Context
}

var (
	_ interfaces.Logger       = (*consoleLogger)(nil)
	_ interfaces.FieldsLogger = (*consoleLogger)(nil)
)

func (l *consoleLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *consoleLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *consoleLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *consoleLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *consoleLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

// Fatal logs at fatal level without exiting the process.
func (l *consoleLogger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args) }

func (l *consoleLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	return &consoleLogger{
		clock: l.clock,
		zl:    l.zl.With().Fields(fields).Logger(),
		ctx:   l.ctx,
	}
}

func (l *consoleLogger) WithContext(ctx context.Context) interfaces.Logger {
	return &consoleLogger{clock: l.clock, zl: l.zl, ctx: ctx}
}

func (l *consoleLogger) log(level Level, msg string, args []any) {
	// WithLevel never exits or panics, unlike zl.Fatal.
	event := l.zl.WithLevel(level)
	if event == nil {
		return
	}
	event = event.Time(zerolog.TimestampFieldName, l.clock().UTC())
	if fields := logging.ContextFields(l.ctx); len(fields) > 0 {
		event = event.Fields(fields)
	}
	if fields := argsToFields(args); len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(msg)
}

// argsToFields pairs slog-style key/value arguments. Non-string keys and a
// trailing value without key are kept under positional names.
func argsToFields(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i == len(args)-1 {
			fields[fmt.Sprintf("field_%d", i/2)] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = fmt.Sprintf("field_%d", i/2)
		}
		fields[key] = normalizeValue(args[i+1])
	}
	return fields
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC()
	case time.Time:
		return v.UTC()
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}
