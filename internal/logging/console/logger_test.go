package console_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-cms-scheduler/internal/logging"
	"github.com/goliatone/go-cms-scheduler/internal/logging/console"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)

	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		JSON:     true,
		TimeFunc: func() time.Time { return now },
	})

	logger := provider.GetLogger("scheduler.sweep")
	logger = logging.WithFields(logger, map[string]any{"module": "scheduler.sweep"})
	ctx := logging.ContextWithTransition(context.Background(), "article", "", "publish")
	logger = logger.WithContext(ctx)

	entityID := uuid.MustParse("8a51a9b1-2d30-4b2c-8ecd-2c0b87dfa999")
	nextPublish := time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)
	logger.Info("scheduler.transition.applied",
		"entity_id", entityID,
		"next_publish_at", &nextPublish,
		"lock_ttl", 10*time.Minute,
		"error", errors.New("listener failed"),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	want := map[string]any{
		"level":           "info",
		"message":         "scheduler.transition.applied",
		"logger":          "scheduler.sweep",
		"module":          "scheduler.sweep",
		"entity_type":     "article",
		"action":          "publish",
		"entity_id":       entityID.String(),
		"lock_ttl":        "10m0s",
		"next_publish_at": "2024-03-16T08:00:00Z",
		"error":           "listener failed",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("field %s: want %v, got %v (entry %v)", key, value, entry[key], entry)
		}
	}
	if entry["time"] != "2024-03-14T15:09:26Z" {
		t.Fatalf("expected injected clock timestamp, got %v", entry["time"])
	}
}

func TestConsoleLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf})

	provider.GetLogger("scheduler.locks").Warn("scheduler.lock.held", "lock", "scheduler.sweep", 42)

	out := buf.String()
	for _, fragment := range []string{"scheduler.lock.held", "lock=scheduler.sweep", "logger=scheduler.locks", "field_1=42"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		JSON:     true,
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("scheduler.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")
	logger.Fatal("included.fatal")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0]["message"] != "included.info" || entries[1]["level"] != "fatal" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestConsoleLogger_FocusMutesOtherLoggers(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{
		Writer: &buf,
		JSON:   true,
		Focus:  []string{"scheduler.locks", " "},
	})

	provider.GetLogger("scheduler.sweep").Info("sweep.entry")
	locks := provider.GetLogger("scheduler.locks")
	logging.WithFields(locks, map[string]any{"lock": "scheduler.sweep"}).Info("locks.entry")

	out := buf.String()
	if strings.Contains(out, "sweep.entry") {
		t.Fatalf("expected unfocused logger to be muted, got %s", out)
	}
	if !strings.Contains(out, "locks.entry") {
		t.Fatalf("expected focused logger to write, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]console.Level{
		"trace":   console.LevelTrace,
		" DEBUG ": console.LevelDebug,
		"warning": console.LevelWarn,
		"fatal":   console.LevelFatal,
	}
	for input, want := range cases {
		got, ok := console.ParseLevel(input)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", input, got, ok, want)
		}
	}
	if _, ok := console.ParseLevel("loud"); ok {
		t.Fatal("expected unknown level to be rejected")
	}
}
