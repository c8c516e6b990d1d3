package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/locks"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

const (
	DefaultLockName = "scheduler.sweep"
	DefaultLockTTL  = 10 * time.Minute
)

// Sweeper runs the publish and unpublish sweeps.
type Sweeper interface {
	RunSweep(ctx context.Context) (transitions.SweepResult, error)
	RunAction(ctx context.Context, action domain.Action, now time.Time) (transitions.ActionResult, error)
}

// Worker serialises sweeps behind an advisory lock and records a summary
// audit event for each run.
type Worker struct {
	sweeper  Sweeper
	locker   interfaces.Locker
	audit    AuditRecorder
	logger   interfaces.Logger
	now      func() time.Time
	lockName string
	lockTTL  time.Duration
}

type Option func(*Worker)

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(w *Worker) {
		w.audit = recorder
	}
}

func WithLocker(locker interfaces.Locker) Option {
	return func(w *Worker) {
		if locker != nil {
			w.locker = locker
		}
	}
}

func WithLockName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.lockName = name
		}
	}
}

func WithLockTTL(ttl time.Duration) Option {
	return func(w *Worker) {
		if ttl > 0 {
			w.lockTTL = ttl
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func NewWorker(sweeper Sweeper, opts ...Option) *Worker {
	w := &Worker{
		sweeper:  sweeper,
		locker:   locks.NewInMemory(),
		logger:   logging.NoOp(),
		now:      time.Now,
		lockName: DefaultLockName,
		lockTTL:  DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process runs a full sweep, or only the listed actions, while holding the
// sweep lock. interfaces.ErrLockHeld is returned when another sweep is active.
func (w *Worker) Process(ctx context.Context, actions ...domain.Action) (transitions.SweepResult, error) {
	if w.sweeper == nil {
		return transitions.SweepResult{}, errors.New("jobs: sweeper is nil")
	}

	lease, err := w.locker.Acquire(ctx, w.lockName, w.lockTTL)
	if err != nil {
		if errors.Is(err, interfaces.ErrLockHeld) {
			w.logger.Info("scheduler.sweep.skipped", "reason", "lock_held", "lock", w.lockName)
		}
		return transitions.SweepResult{}, err
	}
	ctx = logging.ContextWithFields(ctx, map[string]any{
		"lock":        w.lockName,
		"lease_owner": lease.Owner(),
	})
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			w.logger.Warn("scheduler.sweep.release_failed", "lock", w.lockName, "error", releaseErr)
		}
	}()

	result, err := w.run(ctx, actions)
	w.recordSummary(ctx, result, err)
	return result, err
}

func (w *Worker) run(ctx context.Context, actions []domain.Action) (transitions.SweepResult, error) {
	if len(actions) == 0 {
		return w.sweeper.RunSweep(ctx)
	}

	now := w.now()
	result := transitions.SweepResult{}
	for _, action := range actions {
		actionResult, err := w.sweeper.RunAction(ctx, action, now)
		result.Actions = append(result.Actions, actionResult)
		switch action {
		case domain.ActionPublish:
			result.Published = result.Published || actionResult.Changed()
		case domain.ActionUnpublish:
			result.Unpublished = result.Unpublished || actionResult.Changed()
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (w *Worker) recordSummary(ctx context.Context, result transitions.SweepResult, runErr error) {
	if w.audit == nil {
		return
	}
	metadata := map[string]any{
		"published":   result.Published,
		"unpublished": result.Unpublished,
		"faults":      len(result.Faults()),
	}
	event := AuditEvent{
		EntityType: "sweep",
		Action:     "sweep",
		Outcome:    OutcomeCompleted,
		OccurredAt: w.now(),
		Metadata:   metadata,
	}
	if runErr != nil {
		event.Outcome = OutcomeFault
		event.Message = runErr.Error()
	}
	if err := w.audit.Record(ctx, event); err != nil {
		w.logger.Warn("scheduler.audit.record_failed", "error", err)
	}
}
