package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	command "github.com/goliatone/go-command"
	"github.com/robfig/cron/v3"
)

// ErrCronHandler is returned when a cron handler is not a func() error.
var ErrCronHandler = errors.New("commands: cron handler must be func() error")

// CronRunner runs cron-capable scheduler commands on robfig/cron. Expressions
// accept an optional seconds field and descriptors such as @every 5m.
type CronRunner struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  interfaces.Logger
	started bool
}

// NewCronRunner builds a runner evaluating expressions in loc.
func NewCronRunner(loc *time.Location, logger interfaces.Logger) *CronRunner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronRunner{
		cron:   cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		logger: logger,
	}
}

// Registrar returns a CronRegistrar that adds jobs to the runner.
func (r *CronRunner) Registrar() CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		fn, ok := handler.(func() error)
		if !ok {
			return fmt.Errorf("%w: %T", ErrCronHandler, handler)
		}
		expression := cfg.Expression
		_, err := r.cron.AddFunc(expression, func() {
			if err := fn(); err != nil {
				r.logger.Error("scheduler.cron.failed", "expression", expression, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("cron %q: %w", expression, err)
		}
		r.logger.Info("scheduler.cron.registered", "expression", expression)
		return nil
	}
}

// Len reports the number of registered jobs.
func (r *CronRunner) Len() int {
	return len(r.cron.Entries())
}

// Start runs the jobs in the background. Repeated calls are ignored.
func (r *CronRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.cron.Start()
}

// Stop halts the runner and waits for running jobs or ctx, whichever ends first.
func (r *CronRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
