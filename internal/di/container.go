package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/jobs"
	"github.com/goliatone/go-cms-scheduler/internal/locks"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/logging/console"
	"github.com/goliatone/go-cms-scheduler/internal/logging/gologger"
	"github.com/goliatone/go-cms-scheduler/internal/recurrence"
	"github.com/goliatone/go-cms-scheduler/internal/rulebridge"
	"github.com/goliatone/go-cms-scheduler/internal/runtimeconfig"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/internal/typeconfig"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	repocache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var ErrDefaultRepeatUnknown = errors.New("di: default repeat rule is not registered")

const schemaTimeout = 30 * time.Second

// Container wires scheduler dependencies from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger

	bunDB  *bun.DB
	ownsDB bool

	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	recurrence *recurrence.Registry
	types      *typeconfig.Registry
	events     *events.Dispatcher

	entityRepo  entities.Repository
	entityProxy *entityRepositoryProxy
	locker      interfaces.Locker
	audit       jobs.AuditRecorder
	ruleBridge  transitions.RuleBridge

	coordinatorOpts []transitions.Option
	coordinator     *transitions.Coordinator
	worker          *jobs.Worker

	now func() time.Time
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the logger provider built from configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies an existing database. The container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default cache service used for entity reads.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithRecurrence replaces the built-in recurrence registry.
func WithRecurrence(registry *recurrence.Registry) Option {
	return func(c *Container) {
		c.recurrence = registry
	}
}

// WithEntityRepository replaces the repository selected by the storage driver.
func WithEntityRepository(repo entities.Repository) Option {
	return func(c *Container) {
		c.entityRepo = repo
	}
}

// WithLocker replaces the locker selected by the storage driver.
func WithLocker(locker interfaces.Locker) Option {
	return func(c *Container) {
		c.locker = locker
	}
}

// WithAuditRecorder replaces the audit recorder selected by the storage driver.
func WithAuditRecorder(recorder jobs.AuditRecorder) Option {
	return func(c *Container) {
		c.audit = recorder
	}
}

// WithRuleBridge installs a rule bridge regardless of the feature flag.
func WithRuleBridge(bridge transitions.RuleBridge) Option {
	return func(c *Container) {
		c.ruleBridge = bridge
	}
}

// WithCoordinatorOptions appends options applied when the coordinator is built.
func WithCoordinatorOptions(opts ...transitions.Option) Option {
	return func(c *Container) {
		c.coordinatorOpts = append(c.coordinatorOpts, opts...)
	}
}

// WithClock overrides the clock shared by the coordinator, worker and stores.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// NewContainer validates cfg and builds the scheduler services.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	steps := []func() error{
		c.configureLogger,
		c.configureStorage,
		c.configureCacheDefaults,
		c.configureRecurrence,
		c.configureTypes,
		c.configureRepositories,
		c.configureCoordinator,
		c.configureWorker,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	c.logger.Info("scheduler.configured",
		"storage", c.Config.StorageDriver(),
		"types", len(c.types.Types()),
		"cache", c.cacheService != nil,
		"audit", c.audit != nil,
		"rule_bridge", c.ruleBridge != nil,
	)
	return c, nil
}

func (c *Container) configureLogger() error {
	if c.loggerProvider == nil && c.Config.Features.Logger {
		switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
		case "gologger":
			provider, err := gologger.NewProvider(gologger.Config{
				Level:     c.Config.Logging.Level,
				Format:    c.Config.Logging.Format,
				AddSource: c.Config.Logging.AddSource,
				Focus:     c.Config.Logging.Focus,
			})
			if err != nil {
				return err
			}
			c.loggerProvider = provider
		default:
			opts := console.Options{
				Focus: c.Config.Logging.Focus,
				JSON:  strings.EqualFold(strings.TrimSpace(c.Config.Logging.Format), "json"),
			}
			if level, ok := console.ParseLevel(c.Config.Logging.Level); ok {
				opts.MinLevel = &level
			}
			c.loggerProvider = console.NewProvider(opts)
		}
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "")
	return nil
}

func (c *Container) configureStorage() error {
	if c.bunDB == nil {
		driver := c.Config.StorageDriver()
		if driver == runtimeconfig.DriverMemory {
			return nil
		}
		db, err := openDB(driver, c.Config.Storage.DSN)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	for _, ensure := range []func(context.Context, *bun.DB) error{
		entities.EnsureSchema,
		locks.EnsureSchema,
		jobs.EnsureAuditSchema,
	} {
		if err := ensure(ctx, c.bunDB); err != nil {
			return fmt.Errorf("di: ensure schema: %w", err)
		}
	}
	return nil
}

func openDB(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case runtimeconfig.DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("di: open sqlite: %w", err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		db.SetMaxOpenConns(1)
		return db, nil
	case runtimeconfig.DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("di: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrStorageDriverUnknown, driver)
	}
}

func (c *Container) configureCacheDefaults() error {
	if !c.Config.Cache.Enabled || c.bunDB == nil {
		return nil
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.DefaultTTL > 0 {
			cfg.TTL = c.Config.Cache.DefaultTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			return fmt.Errorf("di: cache service: %w", err)
		}
		c.cacheService = service
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
	return nil
}

func (c *Container) configureRecurrence() error {
	if c.recurrence == nil {
		c.recurrence = recurrence.NewDefaultRegistry()
	}
	logging.RecurrenceLogger(c.loggerProvider).Debug("scheduler.recurrence.configured", "rules", len(c.recurrence.Rules()))
	return nil
}

func (c *Container) configureTypes() error {
	settings := c.Config.TypeSettings()
	for _, s := range settings {
		if recurrence.IsNone(s.DefaultRepeat) {
			continue
		}
		if _, ok := c.recurrence.Lookup(s.DefaultRepeat); !ok {
			return fmt.Errorf("%w: %s=%q", ErrDefaultRepeatUnknown, s.Name, s.DefaultRepeat)
		}
	}
	registry, err := typeconfig.NewRegistry(settings...)
	if err != nil {
		return err
	}
	c.types = registry
	return nil
}

func (c *Container) configureRepositories() error {
	if c.entityRepo == nil {
		if c.bunDB != nil {
			c.entityRepo = entities.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.entityRepo = entities.NewMemoryRepository(entities.WithMemoryClock(c.now))
		}
	}
	c.entityProxy = newEntityRepositoryProxy(c.entityRepo)

	if c.locker == nil {
		switch {
		case c.Config.Sweep.SkipLock:
			c.locker = locks.NewNoOp()
		case c.bunDB != nil:
			c.locker = locks.NewBunLocker(c.bunDB, locks.WithBunClock(c.now))
		default:
			c.locker = locks.NewInMemory(locks.WithClock(c.now))
		}
	}

	if c.audit == nil && c.Config.Features.Audit {
		if c.bunDB != nil {
			c.audit = jobs.NewBunAuditRecorder(c.bunDB)
		} else {
			c.audit = jobs.NewInMemoryAuditRecorder()
		}
	}

	if c.ruleBridge == nil && c.Config.Features.RuleBridge {
		c.ruleBridge = rulebridge.New(rulebridge.WithLogger(logging.ModuleLogger(c.loggerProvider, "scheduler.rulebridge")))
	}
	return nil
}

func (c *Container) configureCoordinator() error {
	c.events = events.NewDispatcher()

	loc, err := c.Config.Location()
	if err != nil {
		return err
	}
	opts := []transitions.Option{
		transitions.WithLocation(loc),
		transitions.WithRecurrence(c.recurrence),
		transitions.WithRevisions(c.Config.Features.Revisions),
		transitions.WithRepeat(c.Config.Features.Repeat),
		transitions.WithLogger(logging.SweepLogger(c.loggerProvider)),
		transitions.WithClock(c.now),
	}
	for _, name := range c.types.Types() {
		opts = append(opts, transitions.WithEntityAdapter(transitions.NewStoreAdapter(name, c.entityProxy)))
	}
	if c.ruleBridge != nil {
		opts = append(opts, transitions.WithRuleBridge(c.ruleBridge))
	}
	if c.audit != nil {
		opts = append(opts, transitions.WithObserver(jobs.NewAuditObserver(c.audit, logging.SweepLogger(c.loggerProvider), c.now)))
	}
	opts = append(opts, c.coordinatorOpts...)

	coordinator, err := transitions.NewCoordinator(c.types, c.events, opts...)
	if err != nil {
		return err
	}
	c.coordinator = coordinator
	return nil
}

func (c *Container) configureWorker() error {
	opts := []jobs.Option{
		jobs.WithLocker(c.locker),
		jobs.WithLockName(c.Config.Sweep.LockName),
		jobs.WithLockTTL(c.Config.Sweep.LockTTL),
		jobs.WithLogger(logging.LocksLogger(c.loggerProvider)),
		jobs.WithClock(c.now),
	}
	if c.audit != nil {
		opts = append(opts, jobs.WithAuditRecorder(c.audit))
	}
	c.worker = jobs.NewWorker(c.coordinator, opts...)
	return nil
}

// SwapEntityRepository points every store adapter at repo. Nil is ignored.
func (c *Container) SwapEntityRepository(repo entities.Repository) {
	if repo == nil {
		return
	}
	c.entityRepo = repo
	c.entityProxy.swap(repo)
	c.logger.Info("scheduler.storage.swapped", "repository", fmt.Sprintf("%T", repo))
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	if c.bunDB == nil || !c.ownsDB {
		return nil
	}
	return c.bunDB.Close()
}

// LoggerProvider returns the provider used for module loggers. It may be nil
// when logging is disabled.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Logger returns the root scheduler logger.
func (c *Container) Logger() interfaces.Logger {
	return c.logger
}

// DB returns the bun database, or nil for the memory driver.
func (c *Container) DB() *bun.DB {
	return c.bunDB
}

// Recurrence returns the recurrence registry.
func (c *Container) Recurrence() *recurrence.Registry {
	return c.recurrence
}

// Types returns the per-type settings registry.
func (c *Container) Types() *typeconfig.Registry {
	return c.types
}

// Events returns the scheduler event dispatcher.
func (c *Container) Events() *events.Dispatcher {
	return c.events
}

// EntityRepository returns the repository backing the store adapters.
func (c *Container) EntityRepository() entities.Repository {
	return c.entityProxy
}

// Revisions returns the revision store when the current repository keeps one.
func (c *Container) Revisions() entities.RevisionRepository {
	if revisions, ok := c.entityProxy.current().(entities.RevisionRepository); ok {
		return revisions
	}
	return nil
}

// Locker returns the advisory locker guarding sweeps.
func (c *Container) Locker() interfaces.Locker {
	return c.locker
}

// AuditRecorder returns the audit recorder, or nil when auditing is disabled.
func (c *Container) AuditRecorder() jobs.AuditRecorder {
	return c.audit
}

// Coordinator returns the scheduling coordinator.
func (c *Container) Coordinator() *transitions.Coordinator {
	return c.coordinator
}

// JobWorker returns the worker that runs locked sweeps.
func (c *Container) JobWorker() *jobs.Worker {
	return c.worker
}

// Now returns the container clock.
func (c *Container) Now() time.Time {
	return c.now()
}
