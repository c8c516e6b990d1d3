package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	scheduler "github.com/goliatone/go-cms-scheduler"
	"github.com/goliatone/go-cms-scheduler/internal/di"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Options captures configuration for scheduler CLI bootstraps.
type Options struct {
	ConfigPath     string
	LoggerProvider interfaces.LoggerProvider
}

// Module wraps the scheduler module and the CLI logger.
type Module struct {
	Module   *scheduler.Module
	Logger   interfaces.Logger
	Location *time.Location
}

// LoadConfig reads an optional YAML file onto the default configuration.
// An empty path returns the defaults.
func LoadConfig(path string) (scheduler.Config, error) {
	cfg := scheduler.DefaultConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// BuildModule constructs a scheduler module from the configuration file.
func BuildModule(opts Options) (*Module, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if !cfg.Features.Logger && opts.LoggerProvider == nil {
		cfg.Features.Logger = true
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := scheduler.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise scheduler module: %w", err)
	}

	return &Module{
		Module:   module,
		Logger:   logging.CommandsLogger(module.Container().LoggerProvider(), "cli"),
		Location: loc,
	}, nil
}

// ParseUUID converts the supplied string into a UUID, returning uuid.Nil when the input is empty.
func ParseUUID(value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(trimmed)
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// ErrTimeFormat is returned when a date flag matches none of the accepted layouts.
var ErrTimeFormat = errors.New("bootstrap: unrecognised time format")

// ParseTime parses value in loc, returning nil when the value is empty.
// RFC 3339 values keep their own offset.
func ParseTime(value string, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTimeFormat, trimmed)
}
