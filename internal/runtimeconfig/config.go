package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/typeconfig"
)

var (
	ErrTypeNameRequired            = errors.New("scheduler config: type name is required")
	ErrTypeDuplicate               = errors.New("scheduler config: type configured more than once")
	ErrPublishPastDateInvalid      = errors.New("scheduler config: publish_past_date must be error, publish or schedule")
	ErrLockTTLInvalid              = errors.New("scheduler config: sweep lock ttl must be positive")
	ErrLockNameRequired            = errors.New("scheduler config: sweep lock name is required")
	ErrStorageDriverUnknown        = errors.New("scheduler config: storage driver is invalid")
	ErrStorageDSNRequired          = errors.New("scheduler config: storage dsn is required for database drivers")
	ErrCacheTTLInvalid             = errors.New("scheduler config: cache ttl must be positive when cache is enabled")
	ErrTimezoneInvalid             = errors.New("scheduler config: timezone is invalid")
	ErrAuditRetentionInvalid       = errors.New("scheduler config: audit retention must be zero or positive")
	ErrCommandsCronRequiresEnabled = errors.New("scheduler config: command cron auto-registration requires commands to be enabled")
	ErrLoggingProviderRequired     = errors.New("scheduler config: logging provider is required when logging feature is enabled")
	ErrLoggingProviderUnknown      = errors.New("scheduler config: logging provider is invalid")
	ErrLoggingLevelInvalid         = errors.New("scheduler config: logging level is invalid")
	ErrLoggingFormatInvalid        = errors.New("scheduler config: logging format is invalid")
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates feature flags and adapter bindings for the scheduler module.
type Config struct {
	Enabled  bool           `yaml:"enabled"`
	Timezone string         `yaml:"timezone"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Audit    AuditConfig    `yaml:"audit"`
	Types    []TypeConfig   `yaml:"types"`
	Features Features       `yaml:"features"`
	Commands CommandsConfig `yaml:"commands"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig selects where entities, locks and audit events are kept.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig captures cache behaviour toggles for entity reads.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// SweepConfig controls sweep serialisation and cron cadence.
type SweepConfig struct {
	LockName       string        `yaml:"lock_name"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	CronExpression string        `yaml:"cron"`
	// SkipLock disables the advisory lock. Only safe when a single external
	// trigger runs sweeps.
	SkipLock bool `yaml:"skip_lock"`
}

// AuditConfig controls audit retention.
type AuditConfig struct {
	Retention   time.Duration `yaml:"retention"`
	CleanupCron string        `yaml:"cleanup_cron"`
}

// TypeConfig holds the per entity type scheduling switches.
type TypeConfig struct {
	Name              string `yaml:"name"`
	PublishEnable     bool   `yaml:"publish_enable"`
	UnpublishEnable   bool   `yaml:"unpublish_enable"`
	PublishRevision   bool   `yaml:"publish_revision"`
	UnpublishRevision bool   `yaml:"unpublish_revision"`
	PublishPastDate   string `yaml:"publish_past_date"`
	DefaultRepeat     string `yaml:"default_repeat"`
}

// Settings converts the entry into registry settings.
func (t TypeConfig) Settings() typeconfig.Settings {
	policy, _ := domain.NormalizePastDatePolicy(t.PublishPastDate)
	return typeconfig.Settings{
		Name:              strings.TrimSpace(t.Name),
		PublishEnable:     t.PublishEnable,
		UnpublishEnable:   t.UnpublishEnable,
		PublishRevision:   t.PublishRevision,
		UnpublishRevision: t.UnpublishRevision,
		PublishPastDate:   policy,
		DefaultRepeat:     strings.TrimSpace(t.DefaultRepeat),
	}
}

// Features toggles module functionality.
type Features struct {
	Logger     bool `yaml:"logger"`
	Revisions  bool `yaml:"revisions"`
	Repeat     bool `yaml:"repeat"`
	RuleBridge bool `yaml:"rule_bridge"`
	Audit      bool `yaml:"audit"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled                bool `yaml:"enabled"`
	AutoRegisterDispatcher bool `yaml:"auto_register_dispatcher"`
	AutoRegisterCron       bool `yaml:"auto_register_cron"`
}

// DefaultConfig returns defaults for an in-memory scheduler with revisions,
// recurrence and auditing enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Timezone: "UTC",
		Storage: StorageConfig{
			Driver: DriverMemory,
		},
		Cache: CacheConfig{
			Enabled:    false,
			DefaultTTL: time.Minute,
		},
		Sweep: SweepConfig{
			LockName:       "scheduler.sweep",
			LockTTL:        10 * time.Minute,
			CronExpression: "@every 5m",
		},
		Audit: AuditConfig{
			Retention:   30 * 24 * time.Hour,
			CleanupCron: "@daily",
		},
		Features: Features{
			Revisions: true,
			Repeat:    true,
			Audit:     true,
		},
		Commands: CommandsConfig{},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// Location resolves the configured timezone, defaulting to UTC.
func (cfg Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(cfg.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTimezoneInvalid, name)
	}
	return loc, nil
}

// TypeSettings returns registry settings for every configured type.
func (cfg Config) TypeSettings() []typeconfig.Settings {
	out := make([]typeconfig.Settings, 0, len(cfg.Types))
	for _, t := range cfg.Types {
		out = append(out, t.Settings())
	}
	return out
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if _, err := cfg.Location(); err != nil {
		return err
	}
	switch normalizeDriver(cfg.Storage.Driver) {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, normalizeDriver(cfg.Storage.Driver))
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}
	if cfg.Cache.Enabled && cfg.Cache.DefaultTTL <= 0 {
		return ErrCacheTTLInvalid
	}
	if strings.TrimSpace(cfg.Sweep.LockName) == "" {
		return ErrLockNameRequired
	}
	if cfg.Sweep.LockTTL <= 0 {
		return ErrLockTTLInvalid
	}
	if cfg.Audit.Retention < 0 {
		return ErrAuditRetentionInvalid
	}

	seen := make(map[string]struct{}, len(cfg.Types))
	for idx, t := range cfg.Types {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("%w: types[%d]", ErrTypeNameRequired, idx)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s", ErrTypeDuplicate, name)
		}
		seen[name] = struct{}{}
		if _, ok := domain.NormalizePastDatePolicy(t.PublishPastDate); !ok {
			return fmt.Errorf("%w: %s=%q", ErrPublishPastDateInvalid, name, t.PublishPastDate)
		}
	}

	if cfg.Commands.AutoRegisterCron && !cfg.Commands.Enabled {
		return ErrCommandsCronRequiresEnabled
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// StorageDriver returns the normalised storage driver name.
func (cfg Config) StorageDriver() string {
	return normalizeDriver(cfg.Storage.Driver)
}

func normalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "":
		return DriverMemory
	case "sqlite3":
		return DriverSQLite
	case "postgresql", "pg":
		return DriverPostgres
	default:
		return driver
	}
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
