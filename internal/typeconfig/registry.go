package typeconfig

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
)

var ErrTypeNameRequired = errors.New("typeconfig: type name is required")

// Settings holds the scheduling switches for a single entity type.
type Settings struct {
	Name              string
	PublishEnable     bool
	UnpublishEnable   bool
	PublishRevision   bool
	UnpublishRevision bool
	PublishPastDate   domain.PastDatePolicy
	DefaultRepeat     string
}

// Enabled reports whether the action is switched on for the type.
func (s Settings) Enabled(action domain.Action) bool {
	switch action {
	case domain.ActionPublish:
		return s.PublishEnable
	case domain.ActionUnpublish:
		return s.UnpublishEnable
	default:
		return false
	}
}

// Revision reports whether the action should create a revision.
func (s Settings) Revision(action domain.Action) bool {
	switch action {
	case domain.ActionPublish:
		return s.PublishRevision
	case domain.ActionUnpublish:
		return s.UnpublishRevision
	default:
		return false
	}
}

// Registry stores per-type settings. Unknown types are disabled for every
// action.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Settings
}

func NewRegistry(settings ...Settings) (*Registry, error) {
	reg := &Registry{types: make(map[string]Settings)}
	for _, s := range settings {
		if err := reg.Put(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Put adds or replaces the settings for a type.
func (r *Registry) Put(settings Settings) error {
	name := strings.TrimSpace(settings.Name)
	if name == "" {
		return ErrTypeNameRequired
	}
	settings.Name = name
	if policy, ok := domain.NormalizePastDatePolicy(string(settings.PublishPastDate)); ok {
		settings.PublishPastDate = policy
	} else {
		settings.PublishPastDate = domain.PastDateError
	}
	settings.DefaultRepeat = strings.ToLower(strings.TrimSpace(settings.DefaultRepeat))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = settings
	return nil
}

func (r *Registry) Get(name string) (Settings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.types[name]
	return s, ok
}

// Types returns the configured type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Enabled reports whether action is enabled for the named type.
func (r *Registry) Enabled(name string, action domain.Action) bool {
	s, ok := r.Get(name)
	return ok && s.Enabled(action)
}

// Revision reports whether action creates a revision for the named type.
func (r *Registry) Revision(name string, action domain.Action) bool {
	s, ok := r.Get(name)
	return ok && s.Revision(action)
}

// PastDatePolicy returns the publish_past_date policy for the named type.
func (r *Registry) PastDatePolicy(name string) domain.PastDatePolicy {
	s, ok := r.Get(name)
	if !ok {
		return domain.PastDateError
	}
	return s.PublishPastDate
}

// DefaultRepeat returns the repeat rule applied to entities saved without one.
func (r *Registry) DefaultRepeat(name string) string {
	s, _ := r.Get(name)
	return s.DefaultRepeat
}
