package transitions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/recurrence"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
)

// Coordinator runs publish and unpublish sweeps over the registered entity
// adapters and applies the save-time scheduling flow.
type Coordinator struct {
	mu         sync.RWMutex
	adapters   map[string]EntityAdapter
	types      TypeSettings
	dispatcher Dispatcher
	rules      *recurrence.Registry
	allow      []AllowPredicate
	augmenters []CandidateAugmenter
	filters    []CandidateFilter
	bridge     RuleBridge
	observers  []Observer
	logger     interfaces.Logger
	now        func() time.Time
	location   *time.Location
	revisions  bool
	repeat     bool
	pending    []error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEntityAdapter registers the storage adapter for an entity type.
func WithEntityAdapter(adapter EntityAdapter) Option {
	return func(c *Coordinator) {
		if err := c.RegisterAdapter(adapter); err != nil {
			c.pending = append(c.pending, err)
		}
	}
}

// WithRecurrence overrides the recurrence registry.
func WithRecurrence(rules *recurrence.Registry) Option {
	return func(c *Coordinator) {
		if rules != nil {
			c.rules = rules
		}
	}
}

func WithAllowPredicate(predicate AllowPredicate) Option {
	return func(c *Coordinator) {
		if predicate != nil {
			c.allow = append(c.allow, predicate)
		}
	}
}

func WithCandidateAugmenter(augmenter CandidateAugmenter) Option {
	return func(c *Coordinator) {
		if augmenter != nil {
			c.augmenters = append(c.augmenters, augmenter)
		}
	}
}

func WithCandidateFilter(filter CandidateFilter) Option {
	return func(c *Coordinator) {
		if filter != nil {
			c.filters = append(c.filters, filter)
		}
	}
}

func WithRuleBridge(bridge RuleBridge) Option {
	return func(c *Coordinator) {
		c.bridge = bridge
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Coordinator) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithLocation sets the calendar location used when re-arming monthly and
// yearly schedules. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithRevisions toggles revision creation globally. Per-type settings still
// decide whether a given transition creates one.
func WithRevisions(enabled bool) Option {
	return func(c *Coordinator) {
		c.revisions = enabled
	}
}

// WithRepeat toggles recurrence handling.
func WithRepeat(enabled bool) Option {
	return func(c *Coordinator) {
		c.repeat = enabled
	}
}

// NewCoordinator builds a coordinator. A nil dispatcher is replaced with an
// empty in-process dispatcher.
func NewCoordinator(types TypeSettings, dispatcher Dispatcher, opts ...Option) (*Coordinator, error) {
	if dispatcher == nil {
		dispatcher = events.NewDispatcher()
	}
	c := &Coordinator{
		adapters:   make(map[string]EntityAdapter),
		types:      types,
		dispatcher: dispatcher,
		rules:      recurrence.NewDefaultRegistry(),
		logger:     logging.NoOp(),
		now:        time.Now,
		location:   time.UTC,
		revisions:  true,
		repeat:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if len(c.pending) > 0 {
		return nil, c.pending[0]
	}
	if c.types == nil {
		return nil, fmt.Errorf("transitions: type settings are required")
	}
	return c, nil
}

// RegisterAdapter adds the adapter for its entity type.
func (c *Coordinator) RegisterAdapter(adapter EntityAdapter) error {
	if adapter == nil {
		return ErrAdapterRequired
	}
	entityType := adapter.EntityType()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.adapters[entityType]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterExists, entityType)
	}
	c.adapters[entityType] = adapter
	return nil
}

// Adapter returns the adapter registered for entityType.
func (c *Coordinator) Adapter(entityType string) (EntityAdapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	adapter, ok := c.adapters[entityType]
	return adapter, ok
}

// Recurrence exposes the rule registry used for re-arming.
func (c *Coordinator) Recurrence() *recurrence.Registry {
	return c.rules
}

// RunSweep runs the publish sweep then the unpublish sweep against a single
// reference time.
func (c *Coordinator) RunSweep(ctx context.Context) (SweepResult, error) {
	now := c.now()
	result := SweepResult{}
	logger := c.logger.WithContext(ctx)

	logger.Info("scheduler.sweep.start", "now", now)
	for _, action := range domain.Actions() {
		actionResult, err := c.RunAction(ctx, action, now)
		result.add(actionResult)
		if err != nil {
			return result, err
		}
	}
	logger.Info("scheduler.sweep.completed",
		"published", result.Published,
		"unpublished", result.Unpublished,
		"faults", len(result.Faults()),
	)
	return result, nil
}

// RunAction runs a single action sweep. Candidate selection errors are
// returned; per-entity failures are reported as faults on the result.
func (c *Coordinator) RunAction(ctx context.Context, action domain.Action, now time.Time) (ActionResult, error) {
	result := ActionResult{Action: action}
	if !action.Valid() {
		return result, fmt.Errorf("transitions: unknown action %q", action)
	}

	candidates, err := c.candidates(ctx, action, now)
	if err != nil {
		return result, goerrors.Wrap(err, goerrors.CategoryCommand, "scheduler candidate selection failed").
			WithTextCode(candidatesFailedCode)
	}
	result.Candidates = len(candidates)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch outcome, fault := c.process(ctx, action, candidate, now); outcome {
		case outcomeTransitioned:
			result.Transitioned++
			if fault != nil {
				result.Faults = append(result.Faults, c.report(ctx, fault))
			}
		case outcomeVetoed:
			result.Vetoed++
		case outcomeDeferred:
			result.Deferred++
		case outcomeFault:
			result.Faults = append(result.Faults, c.report(ctx, fault))
		}
	}
	return result, nil
}

func (c *Coordinator) candidates(ctx context.Context, action domain.Action, now time.Time) ([]Candidate, error) {
	c.mu.RLock()
	types := make([]string, 0, len(c.adapters))
	for entityType := range c.adapters {
		types = append(types, entityType)
	}
	adapters := make(map[string]EntityAdapter, len(c.adapters))
	for entityType, adapter := range c.adapters {
		adapters[entityType] = adapter
	}
	c.mu.RUnlock()
	sort.Strings(types)

	var out []Candidate
	for _, entityType := range types {
		if !c.types.Enabled(entityType, action) {
			continue
		}
		list, err := adapters[entityType].Candidates(ctx, action, now)
		if err != nil {
			return nil, fmt.Errorf("%s candidates: %w", entityType, err)
		}
		out = append(out, list...)
	}
	sortCandidates(out)

	var err error
	for _, augment := range c.augmenters {
		if out, err = augment(ctx, action, now, out); err != nil {
			return nil, fmt.Errorf("augment candidates: %w", err)
		}
	}
	for _, filter := range c.filters {
		if out, err = filter(ctx, action, out); err != nil {
			return nil, fmt.Errorf("filter candidates: %w", err)
		}
	}
	return dedupe(out), nil
}

func (c *Coordinator) report(ctx context.Context, fault *Fault) *Fault {
	c.logger.Error("scheduler.transition.fault",
		"action", fault.Action,
		"entity_id", fault.EntityID,
		"entity_type", fault.EntityType,
		"title", fault.Title,
		"error", fault.Err,
	)
	for _, observer := range c.observers {
		observer.TransitionFailed(ctx, fault)
	}
	return fault
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].DueAt.Equal(candidates[j].DueAt) {
			return candidates[i].DueAt.Before(candidates[j].DueAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
}

func dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidate.key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}
