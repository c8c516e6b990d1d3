package di

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/jobs"
	"github.com/goliatone/go-cms-scheduler/internal/runtimeconfig"
	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
	"github.com/goliatone/go-cms-scheduler/pkg/testsupport"
)

func sqliteConfig(t *testing.T) runtimeconfig.Config {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = testsupport.SQLiteMemoryDSN(t.Name())
	cfg.Types = []runtimeconfig.TypeConfig{
		{Name: "article", PublishEnable: true, UnpublishEnable: true, PublishRevision: true},
	}
	return cfg
}

func newSQLiteContainer(t *testing.T, cfg runtimeconfig.Config, now time.Time) *Container {
	t.Helper()
	container, err := NewContainer(cfg, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Close(); err != nil {
			t.Errorf("close container: %v", err)
		}
	})
	return container
}

func TestContainerSQLiteSweep(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	container := newSQLiteContainer(t, sqliteConfig(t), now)
	ctx := context.Background()

	if container.DB() == nil {
		t.Fatal("expected sqlite database")
	}
	if _, ok := container.EntityRepository().(*entityRepositoryProxy); !ok {
		t.Fatalf("expected proxied repository, got %T", container.EntityRepository())
	}
	if _, ok := container.entityRepo.(*entities.BunRepository); !ok {
		t.Fatalf("expected bun repository, got %T", container.entityRepo)
	}
	if _, ok := container.AuditRecorder().(*jobs.BunAuditRecorder); !ok {
		t.Fatalf("expected bun audit recorder, got %T", container.AuditRecorder())
	}

	publishAt := now.Add(-time.Minute)
	created, err := container.EntityRepository().Create(ctx, &entities.Entity{
		EntityType: "article",
		Title:      "stored",
		Status:     domain.StatusUnpublished,
		PublishAt:  &publishAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := container.JobWorker().Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Published {
		t.Fatalf("expected publish, got %+v", result)
	}

	stored, err := container.EntityRepository().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Published() || stored.PublishAt != nil {
		t.Fatalf("expected published entity without publish date, got %+v", stored)
	}

	revisions, err := container.Revisions().ListRevisions(ctx, created.ID)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revisions) != 1 {
		t.Fatalf("expected one revision, got %d", len(revisions))
	}

	events, err := container.AuditRecorder().List(ctx)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected applied and summary events, got %+v", events)
	}
}

func TestContainerSQLiteWithCache(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := sqliteConfig(t)
	cfg.Cache.Enabled = true
	cfg.Cache.DefaultTTL = time.Minute
	container := newSQLiteContainer(t, cfg, now)

	if container.cacheService == nil || container.keySerializer == nil {
		t.Fatal("expected cache service and key serializer")
	}

	ctx := context.Background()
	publishAt := now.Add(-time.Minute)
	created, err := container.EntityRepository().Create(ctx, &entities.Entity{
		EntityType: "article",
		Title:      "cached",
		PublishAt:  &publishAt,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := container.EntityRepository().GetByID(ctx, created.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if _, err := container.JobWorker().Process(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, err := container.EntityRepository().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Published() {
		t.Fatalf("expected cached read to reflect the sweep, got %+v", stored)
	}
}

func TestContainerLocksThroughDatabase(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	container := newSQLiteContainer(t, sqliteConfig(t), now)
	ctx := context.Background()

	held, err := container.Locker().Acquire(ctx, container.Config.Sweep.LockName, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer func() { _ = held.Release(ctx) }()

	if _, err := container.JobWorker().Process(ctx); !errors.Is(err, interfaces.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld while the lock is held, got %v", err)
	}
}
