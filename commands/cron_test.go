package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/commands"
	command "github.com/goliatone/go-command"
)

func TestCronRunnerRegistersJobs(t *testing.T) {
	runner := commands.NewCronRunner(time.UTC, nil)
	registrar := runner.Registrar()

	if err := registrar(command.HandlerConfig{Expression: "@every 5m"}, func() error { return nil }); err != nil {
		t.Fatalf("register descriptor: %v", err)
	}
	if err := registrar(command.HandlerConfig{Expression: "30 0 3 * * *"}, func() error { return nil }); err != nil {
		t.Fatalf("register seconds expression: %v", err)
	}
	if got := runner.Len(); got != 2 {
		t.Fatalf("expected two jobs, got %d", got)
	}

	if err := registrar(command.HandlerConfig{Expression: "not a cron"}, func() error { return nil }); err == nil {
		t.Fatal("expected invalid expression to fail")
	}
	if err := registrar(command.HandlerConfig{Expression: "@daily"}, "handler"); !errors.Is(err, commands.ErrCronHandler) {
		t.Fatalf("expected ErrCronHandler, got %v", err)
	}
}

func TestCronRunnerStartStop(t *testing.T) {
	runner := commands.NewCronRunner(nil, nil)
	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	runner.Start()
	runner.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
