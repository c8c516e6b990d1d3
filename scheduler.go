package scheduler

import (
	"context"
	"errors"

	"github.com/goliatone/go-cms-scheduler/commands"
	"github.com/goliatone/go-cms-scheduler/internal/di"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/identity"
	"github.com/goliatone/go-cms-scheduler/internal/recurrence"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/google/uuid"
)

// Entity exports the scheduled entity record.
type Entity = entities.Entity

// Action exports the transition identifier.
type Action = domain.Action

// Status exports the publication state.
type Status = domain.Status

// SweepResult exports the outcome of a sweep.
type SweepResult = transitions.SweepResult

// Fault exports a per-entity sweep failure.
type Fault = transitions.Fault

// ScheduleRequest exports the input of Module.Schedule.
type ScheduleRequest = transitions.ScheduleRequest

// Event and Listener export the notification contract.
type (
	Event    = events.Event
	Listener = events.Listener
)

// RecurrenceRule exports the recurrence rule contract.
type RecurrenceRule = recurrence.Rule

// Option exports container overrides accepted by New.
type Option = di.Option

// RegistrationOptions exports the command registration settings.
type RegistrationOptions = commands.RegistrationOptions

const (
	ActionPublish   = domain.ActionPublish
	ActionUnpublish = domain.ActionUnpublish

	StatusPublished   = domain.StatusPublished
	StatusUnpublished = domain.StatusUnpublished
)

// Notification names dispatched around transitions.
const (
	EventPrePublish            = events.PrePublish
	EventPublish               = events.Publish
	EventPreUnpublish          = events.PreUnpublish
	EventUnpublish             = events.Unpublish
	EventPrePublishImmediately = events.PrePublishImmediately
	EventPublishImmediately    = events.PublishImmediately
)

var ErrActionInvalid = errors.New("scheduler: action is invalid")

// EntityID derives a stable entity id from a host key so hosts without UUID
// identifiers can address the same entity across saves.
func EntityID(entityType, key string) uuid.UUID {
	return identity.EntityUUID(entityType, key)
}

// Module represents the top level scheduler runtime façade.
type Module struct {
	container *di.Container
	commands  *commands.RegistrationResult
	cron      *commands.CronRunner
}

// New constructs a scheduler module using the provided configuration and optional DI overrides.
// When Commands.Enabled is set the handlers are subscribed to the go-command
// dispatcher and/or an internal cron runner per the auto-register flags.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	module := &Module{container: container}
	if err := module.autoRegister(); err != nil {
		_ = container.Close()
		return nil, err
	}
	return module, nil
}

func (m *Module) autoRegister() error {
	cfg := m.container.Config.Commands
	if !cfg.Enabled || (!cfg.AutoRegisterDispatcher && !cfg.AutoRegisterCron) {
		return nil
	}
	opts := RegistrationOptions{LoggerProvider: m.container.LoggerProvider()}
	if cfg.AutoRegisterDispatcher {
		opts.Dispatcher = commands.NewDispatcherRegistrar()
	}
	if cfg.AutoRegisterCron {
		loc, err := m.container.Config.Location()
		if err != nil {
			return err
		}
		m.cron = commands.NewCronRunner(loc, m.container.Logger())
		opts.CronRegistrar = m.cron.Registrar()
	}
	result, err := commands.RegisterContainerCommands(m.container, opts)
	if err != nil {
		if result != nil {
			result.Unsubscribe()
		}
		return err
	}
	m.commands = result
	return nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Run executes a full sweep under the sweep lock. A disabled module returns
// an empty result.
func (m *Module) Run(ctx context.Context) (SweepResult, error) {
	if !m.container.Config.Enabled {
		m.container.Logger().Debug("scheduler.sweep.disabled")
		return SweepResult{}, nil
	}
	return m.container.JobWorker().Process(ctx)
}

// RunAction executes a single action under the sweep lock.
func (m *Module) RunAction(ctx context.Context, action Action) (SweepResult, error) {
	if !action.Valid() {
		return SweepResult{}, ErrActionInvalid
	}
	if !m.container.Config.Enabled {
		return SweepResult{}, nil
	}
	return m.container.JobWorker().Process(ctx, action)
}

// Schedule updates the schedule of a stored entity through the save-time flow.
func (m *Module) Schedule(ctx context.Context, req ScheduleRequest) (*Entity, error) {
	return m.container.Coordinator().Schedule(ctx, req)
}

// PrepareSave validates and normalises an entity the host is about to persist.
func (m *Module) PrepareSave(ctx context.Context, entity *Entity) (*Entity, error) {
	return m.container.Coordinator().PrepareSave(ctx, entity)
}

// Subscribe registers listener for the named notification.
func (m *Module) Subscribe(name string, listener Listener) (func(), error) {
	return m.container.Events().Subscribe(name, listener)
}

// Recurrence returns the recurrence registry.
func (m *Module) Recurrence() *recurrence.Registry {
	return m.container.Recurrence()
}

// Events returns the notification dispatcher.
func (m *Module) Events() *events.Dispatcher {
	return m.container.Events()
}

// Coordinator returns the scheduling coordinator.
func (m *Module) Coordinator() *transitions.Coordinator {
	return m.container.Coordinator()
}

// Entities returns the entity repository used by the store adapters.
func (m *Module) Entities() entities.Repository {
	return m.container.EntityRepository()
}

// RegisterCommands builds the scheduler command handlers and wires them into
// the supplied registrars.
func (m *Module) RegisterCommands(opts RegistrationOptions) (*commands.RegistrationResult, error) {
	return commands.RegisterContainerCommands(m.container, opts)
}

// Start runs the auto-registered cron jobs. It is a no-op unless
// Commands.AutoRegisterCron is enabled.
func (m *Module) Start() {
	if m.cron != nil {
		m.cron.Start()
	}
}

// CronJobs reports how many cron jobs were auto-registered.
func (m *Module) CronJobs() int {
	if m.cron == nil {
		return 0
	}
	return m.cron.Len()
}

// Close releases resources owned by the module.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	if m.cron != nil {
		if err := m.cron.Stop(context.Background()); err != nil {
			return err
		}
	}
	if m.commands != nil {
		m.commands.Unsubscribe()
		m.commands = nil
	}
	return m.container.Close()
}
