package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
	"github.com/goliatone/go-cms-scheduler/internal/entities"
)

// Canonical notification names. PreUnpublish fires before the unpublish
// deferral check, so a deferred entity sees PreUnpublish without a matching
// Unpublish in that sweep.
const (
	PrePublish            = "scheduler.pre_publish"
	Publish               = "scheduler.publish"
	PreUnpublish          = "scheduler.pre_unpublish"
	Unpublish             = "scheduler.unpublish"
	PrePublishImmediately = "scheduler.pre_publish_immediately"
	PublishImmediately    = "scheduler.publish_immediately"
)

var (
	ErrEventNameRequired = errors.New("events: event name is required")
	ErrListenerRequired  = errors.New("events: listener is required")
)

// Names lists every canonical event name.
func Names() []string {
	return []string{PrePublish, Publish, PreUnpublish, Unpublish, PrePublishImmediately, PublishImmediately}
}

// PreEventFor returns the notification dispatched before action mutates an entity.
func PreEventFor(action domain.Action) string {
	if action == domain.ActionUnpublish {
		return PreUnpublish
	}
	return PrePublish
}

// PostEventFor returns the notification dispatched after action is applied.
func PostEventFor(action domain.Action) string {
	if action == domain.ActionUnpublish {
		return Unpublish
	}
	return Publish
}

// Event is handed to listeners.
type Event struct {
	Name   string
	Action domain.Action
	Entity *entities.Entity
}

// Listener observes an event and returns the snapshot the caller continues
// with. Returning nil keeps the snapshot it was given.
type Listener func(ctx context.Context, event Event) (*entities.Entity, error)

// Dispatcher is a synchronous, in-process notification bus.
type Dispatcher struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[string][]subscription
}

type subscription struct {
	id       int
	listener Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]subscription)}
}

// Subscribe registers listener for name. Listeners run in subscription order.
// The returned func removes the listener.
func (d *Dispatcher) Subscribe(name string, listener Listener) (func(), error) {
	if name == "" {
		return nil, ErrEventNameRequired
	}
	if listener == nil {
		return nil, ErrListenerRequired
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners[name] = append(d.listeners[name], subscription{id: id, listener: listener})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(name, id) })
	}, nil
}

// Dispatch threads entity through every listener for name and returns the
// resulting snapshot. The first listener error stops the chain.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, action domain.Action, entity *entities.Entity) (*entities.Entity, error) {
	d.mu.RLock()
	subs := append([]subscription(nil), d.listeners[name]...)
	d.mu.RUnlock()

	current := entity
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		next, err := sub.listener(ctx, Event{Name: name, Action: action, Entity: current})
		if err != nil {
			return current, fmt.Errorf("events: %s listener: %w", name, err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

func (d *Dispatcher) remove(name string, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.listeners[name]
	for i, sub := range subs {
		if sub.id == id {
			d.listeners[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
