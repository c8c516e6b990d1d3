package rulebridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/commands"
	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/google/uuid"
)

func sampleEntity() *entities.Entity {
	next := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	return &entities.Entity{
		ID:            uuid.New(),
		EntityType:    "article",
		Title:         "weekly digest",
		Status:        domain.StatusPublished,
		ChangedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		RepeatRule:    "daily",
		NextPublishAt: &next,
	}
}

func TestBridgeDispatchesThroughGoCommand(t *testing.T) {
	received := make(chan TransitionMessage, 1)
	handler := commands.NewHandler(func(_ context.Context, msg TransitionMessage) error {
		received <- msg
		return nil
	})
	sub := dispatcher.SubscribeCommand(handler)
	t.Cleanup(sub.Unsubscribe)

	entity := sampleEntity()
	if err := New().Bridge(context.Background(), entity, domain.ActionPublish); err != nil {
		t.Fatalf("bridge: %v", err)
	}

	select {
	case msg := <-received:
		if msg.EntityID != entity.ID || msg.Action != domain.ActionPublish || msg.Title != "weekly digest" {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.NextPublishAt == nil || msg.NextPublishAt == entity.NextPublishAt {
			t.Fatal("expected next publish date to be copied")
		}
	case <-time.After(time.Second):
		t.Fatal("expected subscriber to receive the transition")
	}
}

func TestBridgePropagatesDispatchErrors(t *testing.T) {
	boom := errors.New("rules offline")
	var got TransitionMessage
	bridge := New(WithDispatchFunc(func(_ context.Context, msg TransitionMessage) error {
		got = msg
		return boom
	}))

	err := bridge.Bridge(context.Background(), sampleEntity(), domain.ActionUnpublish)
	if !errors.Is(err, boom) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if got.Action != domain.ActionUnpublish {
		t.Fatalf("expected unpublish message, got %q", got.Action)
	}
}

func TestBridgeRejectsInvalidInput(t *testing.T) {
	called := false
	bridge := New(WithDispatchFunc(func(context.Context, TransitionMessage) error {
		called = true
		return nil
	}))

	if err := bridge.Bridge(context.Background(), nil, domain.ActionPublish); !errors.Is(err, ErrEntityRequired) {
		t.Fatalf("expected ErrEntityRequired, got %v", err)
	}
	if err := bridge.Bridge(context.Background(), &entities.Entity{EntityType: "article"}, domain.ActionPublish); err == nil {
		t.Fatal("expected validation error for missing id")
	}
	if err := bridge.Bridge(context.Background(), sampleEntity(), domain.Action("archive")); err == nil {
		t.Fatal("expected validation error for unknown action")
	}
	if called {
		t.Fatal("expected invalid messages not to be dispatched")
	}
}
