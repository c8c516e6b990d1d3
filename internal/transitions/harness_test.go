package transitions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
	"github.com/goliatone/go-cms-scheduler/internal/events"
	"github.com/goliatone/go-cms-scheduler/internal/transitions"
	"github.com/goliatone/go-cms-scheduler/internal/typeconfig"
	"github.com/google/uuid"
)

var sweepNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	repo       *entities.MemoryRepository
	types      *typeconfig.Registry
	dispatcher *events.Dispatcher
	adapters   map[string]*recordingAdapter
	coord      *transitions.Coordinator
	observer   *recordingObserver
}

func newHarness(t *testing.T, opts ...transitions.Option) *harness {
	t.Helper()

	types, err := typeconfig.NewRegistry(
		typeconfig.Settings{Name: "article", PublishEnable: true, UnpublishEnable: true, PublishRevision: true},
		typeconfig.Settings{Name: "page", PublishEnable: true},
		typeconfig.Settings{Name: "news", PublishEnable: true, UnpublishEnable: true, PublishPastDate: domain.PastDatePublish, DefaultRepeat: "weekly"},
		typeconfig.Settings{Name: "event", PublishEnable: true, UnpublishEnable: true, PublishPastDate: domain.PastDateSchedule},
	)
	if err != nil {
		t.Fatalf("type registry: %v", err)
	}

	h := &harness{
		repo:       entities.NewMemoryRepository(entities.WithMemoryClock(func() time.Time { return sweepNow })),
		types:      types,
		dispatcher: events.NewDispatcher(),
		adapters:   make(map[string]*recordingAdapter),
		observer:   &recordingObserver{},
	}

	base := []transitions.Option{
		transitions.WithClock(func() time.Time { return sweepNow }),
		transitions.WithObserver(h.observer),
	}
	for _, name := range types.Types() {
		adapter := &recordingAdapter{StoreAdapter: transitions.NewStoreAdapter(name, h.repo)}
		h.adapters[name] = adapter
		base = append(base, transitions.WithEntityAdapter(adapter))
	}

	coord, err := transitions.NewCoordinator(types, h.dispatcher, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	h.coord = coord
	return h
}

func (h *harness) seed(t *testing.T, record *entities.Entity) *entities.Entity {
	t.Helper()
	if record.EntityType == "" {
		record.EntityType = "article"
	}
	created, err := h.repo.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("seed %q: %v", record.Title, err)
	}
	return created
}

func (h *harness) get(t *testing.T, id uuid.UUID) *entities.Entity {
	t.Helper()
	record, err := h.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return record
}

func (h *harness) saves(entityType string) []uuid.UUID {
	adapter := h.adapters[entityType]
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return append([]uuid.UUID(nil), adapter.saved...)
}

func (h *harness) listen(t *testing.T, name string, listener events.Listener) {
	t.Helper()
	unsubscribe, err := h.dispatcher.Subscribe(name, listener)
	if err != nil {
		t.Fatalf("subscribe %s: %v", name, err)
	}
	t.Cleanup(unsubscribe)
}

// countEvents records how many times each event fired per entity title.
func (h *harness) countEvents(t *testing.T, names ...string) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	var mu sync.Mutex
	for _, name := range names {
		name := name
		h.listen(t, name, func(_ context.Context, evt events.Event) (*entities.Entity, error) {
			mu.Lock()
			counts[name+":"+evt.Entity.Title]++
			mu.Unlock()
			return nil, nil
		})
	}
	return counts
}

type recordingAdapter struct {
	*transitions.StoreAdapter
	mu    sync.Mutex
	saved []uuid.UUID
}

func (a *recordingAdapter) Save(ctx context.Context, entity *entities.Entity) (*entities.Entity, error) {
	a.mu.Lock()
	a.saved = append(a.saved, entity.ID)
	a.mu.Unlock()
	return a.StoreAdapter.Save(ctx, entity)
}

type recordingObserver struct {
	mu      sync.Mutex
	applied []string
	faults  []*transitions.Fault
}

func (o *recordingObserver) TransitionApplied(_ context.Context, action domain.Action, entity *entities.Entity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = append(o.applied, string(action)+":"+entity.Title)
}

func (o *recordingObserver) TransitionFailed(_ context.Context, fault *transitions.Fault) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults = append(o.faults, fault)
}

func at(offset time.Duration) *time.Time {
	t := sweepNow.Add(offset)
	return &t
}
