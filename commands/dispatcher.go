package commands

import (
	"errors"
	"fmt"

	auditcmd "github.com/goliatone/go-cms-scheduler/internal/commands/audit"
	schedulecmd "github.com/goliatone/go-cms-scheduler/internal/commands/schedule"
	sweepcmd "github.com/goliatone/go-cms-scheduler/internal/commands/sweep"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

// ErrHandlerUnsupported is returned when a handler has no dispatcher binding.
var ErrHandlerUnsupported = errors.New("commands: handler cannot be subscribed to the dispatcher")

// DispatcherRegistrar subscribes scheduler handlers to the go-command
// dispatcher so hosts can trigger them with dispatcher.Dispatch.
type DispatcherRegistrar struct {
	opts []runner.Option
}

var _ CommandDispatcher = DispatcherRegistrar{}

// NewDispatcherRegistrar returns a registrar applying opts to every subscription.
func NewDispatcherRegistrar(opts ...runner.Option) DispatcherRegistrar {
	return DispatcherRegistrar{opts: opts}
}

// RegisterCommand subscribes handler when it is one of the scheduler handlers.
func (d DispatcherRegistrar) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *sweepcmd.RunSweepHandler:
		return dispatcher.SubscribeCommand(h, d.opts...), nil
	case *schedulecmd.ScheduleEntityHandler:
		return dispatcher.SubscribeCommand(h, d.opts...), nil
	case *auditcmd.ExportAuditHandler:
		return dispatcher.SubscribeCommand(h, d.opts...), nil
	case *auditcmd.CleanupAuditHandler:
		return dispatcher.SubscribeCommand(h, d.opts...), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrHandlerUnsupported, handler)
	}
}
