package sweepcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
)

type stubRunner struct {
	calls     [][]domain.Action
	deadlines []bool
	result    transitions.SweepResult
	err       error
}

func (s *stubRunner) Process(ctx context.Context, actions ...domain.Action) (transitions.SweepResult, error) {
	s.calls = append(s.calls, actions)
	_, hasDeadline := ctx.Deadline()
	s.deadlines = append(s.deadlines, hasDeadline)
	return s.result, s.err
}

func TestRunSweepHandlerRunsFullSweep(t *testing.T) {
	runner := &stubRunner{result: transitions.SweepResult{Published: true}}
	handler := NewRunSweepHandler(runner, logging.NoOp())

	if err := handler.Execute(context.Background(), RunSweepCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.calls) != 1 || len(runner.calls[0]) != 0 {
		t.Fatalf("expected a single full sweep, got %v", runner.calls)
	}
	if !handler.LastResult().Published {
		t.Fatal("expected last result to be recorded")
	}
}

func TestRunSweepHandlerRunsWithoutDeadline(t *testing.T) {
	runner := &stubRunner{}
	handler := NewRunSweepHandler(runner, nil)

	if err := handler.CronHandler()(); err != nil {
		t.Fatalf("cron handler: %v", err)
	}
	if err := handler.Execute(context.Background(), RunSweepCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.deadlines) != 2 {
		t.Fatalf("expected two sweeps, got %d", len(runner.deadlines))
	}
	for i, hasDeadline := range runner.deadlines {
		if hasDeadline {
			t.Fatalf("sweep %d ran under a deadline", i)
		}
	}
}

func TestRunSweepHandlerAppliesExplicitTimeout(t *testing.T) {
	runner := &stubRunner{}
	handler := NewRunSweepHandler(runner, nil, WithTimeout(time.Minute))

	if err := handler.Execute(context.Background(), RunSweepCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.deadlines) != 1 || !runner.deadlines[0] {
		t.Fatalf("expected the sweep to run under a deadline, got %v", runner.deadlines)
	}
}

func TestRunSweepHandlerRunsSingleAction(t *testing.T) {
	runner := &stubRunner{}
	handler := NewRunSweepHandler(runner, nil)

	if err := handler.Execute(context.Background(), RunSweepCommand{Action: " Unpublish "}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.calls) != 1 || len(runner.calls[0]) != 1 || runner.calls[0][0] != domain.ActionUnpublish {
		t.Fatalf("expected unpublish only, got %v", runner.calls)
	}
}

func TestRunSweepCommandRejectsUnknownAction(t *testing.T) {
	runner := &stubRunner{}
	handler := NewRunSweepHandler(runner, nil)

	err := handler.Execute(context.Background(), RunSweepCommand{Action: "archive"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("expected runner not to be called")
	}
}

func TestRunSweepHandlerTreatsHeldLockAsSkip(t *testing.T) {
	runner := &stubRunner{err: interfaces.ErrLockHeld}
	var status commands.TelemetryStatus
	handler := NewRunSweepHandler(runner, nil, WithTelemetry(func(_ context.Context, _ RunSweepCommand, info commands.TelemetryInfo) {
		status = info.Status
	}))

	if err := handler.Execute(context.Background(), RunSweepCommand{}); err != nil {
		t.Fatalf("expected held lock to be skipped, got %v", err)
	}
	if status != commands.TelemetryStatusSkipped {
		t.Fatalf("expected skipped telemetry, got %q", status)
	}
}

func TestRunSweepHandlerPropagatesFailures(t *testing.T) {
	boom := errors.New("candidates failed")
	runner := &stubRunner{err: boom}
	handler := NewRunSweepHandler(runner, nil)

	err := handler.Execute(context.Background(), RunSweepCommand{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
}

func TestRunSweepHandlerCronMetadata(t *testing.T) {
	runner := &stubRunner{}
	handler := NewRunSweepHandler(runner, nil)
	if got := handler.CronOptions().Expression; got != DefaultCronExpression {
		t.Fatalf("expected default cron expression, got %q", got)
	}

	custom := NewRunSweepHandler(runner, nil, WithCronExpression(" */2 * * * * "))
	if got := custom.CronOptions().Expression; got != "*/2 * * * *" {
		t.Fatalf("expected custom cron expression, got %q", got)
	}

	if err := custom.CronHandler()(); err != nil {
		t.Fatalf("cron handler: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected cron handler to run a sweep, got %d calls", len(runner.calls))
	}

	opts := custom.CLIOptions()
	if len(opts.Path) != 2 || opts.Path[0] != "sweep" || opts.Path[1] != "run" {
		t.Fatalf("unexpected cli path %v", opts.Path)
	}
	if custom.CLIHandler() != custom {
		t.Fatal("expected cli handler to return the handler")
	}
}
