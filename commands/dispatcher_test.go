package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/commands"
	sweepcmd "github.com/goliatone/go-cms-scheduler/internal/commands/sweep"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-command/dispatcher"
)

func TestDispatcherRegistrarRoutesSweepCommand(t *testing.T) {
	container := newContainer(t, nil)
	ctx := context.Background()
	publishAt := registrationNow.Add(-time.Minute)
	created, err := container.EntityRepository().Create(ctx, &entities.Entity{
		EntityType: "article",
		Title:      "dispatched",
		PublishAt:  &publishAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := commands.RegisterContainerCommands(container, commands.RegistrationOptions{
		Dispatcher: commands.NewDispatcherRegistrar(),
	})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	t.Cleanup(result.Unsubscribe)
	if len(result.Subscriptions) != len(result.Handlers) {
		t.Fatalf("expected every handler to subscribe, got %d of %d", len(result.Subscriptions), len(result.Handlers))
	}

	if err := dispatcher.Dispatch(ctx, sweepcmd.RunSweepCommand{Action: "publish"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	stored, err := container.EntityRepository().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Published() {
		t.Fatalf("expected dispatched sweep to publish, got %+v", stored)
	}
}

func TestDispatcherRegistrarRejectsUnknownHandler(t *testing.T) {
	if _, err := commands.NewDispatcherRegistrar().RegisterCommand(struct{}{}); !errors.Is(err, commands.ErrHandlerUnsupported) {
		t.Fatalf("expected ErrHandlerUnsupported, got %v", err)
	}
}
