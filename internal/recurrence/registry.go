package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrRuleRequired   = errors.New("recurrence: rule is required")
	ErrRuleIDRequired = errors.New("recurrence: rule id is required")
	ErrRuleExists     = errors.New("recurrence: rule already registered")
	ErrUnknownRule    = errors.New("recurrence: unknown rule")
	ErrNoRecurrence   = errors.New("recurrence: rule does not repeat")
)

// Registry maps rule identifiers to implementations. It is safe for
// concurrent use; rules are populated at startup and looked up per transition.
type Registry struct {
	mu      sync.RWMutex
	rules   map[string]Rule
	aliases map[string]string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:   make(map[string]Rule),
		aliases: make(map[string]string),
	}
}

// NewDefaultRegistry constructs a registry seeded with the built-in rules and
// their hyphenated aliases.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, rule := range Builtins() {
		_ = reg.Register(rule)
	}
	_ = reg.Alias("six-minute", RuleSixMinutes)
	_ = reg.Alias("ten-minute", RuleTenMinutes)
	return reg
}

// Register adds a rule. Identifiers are unique and case-insensitive.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return ErrRuleRequired
	}
	id := normalizeID(rule.ID())
	if id == "" {
		return ErrRuleIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, id)
	}
	if _, exists := r.aliases[id]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, id)
	}
	r.rules[id] = rule
	return nil
}

// Alias makes alias resolve to the rule registered as target.
func (r *Registry) Alias(alias, target string) error {
	alias = normalizeID(alias)
	target = normalizeID(target)
	if alias == "" || target == "" {
		return ErrRuleIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRule, target)
	}
	if _, exists := r.rules[alias]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, alias)
	}
	r.aliases[alias] = target
	return nil
}

// Lookup resolves a rule by identifier or alias.
func (r *Registry) Lookup(id string) (Rule, bool) {
	id = normalizeID(id)
	if id == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[id]; ok {
		id = target
	}
	rule, ok := r.rules[id]
	return rule, ok
}

// MustLookup resolves a rule or panics. An unknown identifier means the type
// configuration is broken, which should surface immediately.
func (r *Registry) MustLookup(id string) Rule {
	rule, ok := r.Lookup(id)
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrUnknownRule, id))
	}
	return rule
}

// Rules returns the registered rules ordered by weight, then identifier.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight() == out[j].Weight() {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Weight() < out[j].Weight()
	})
	return out
}

// ComputeNextOccurrence advances t by one period of the identified rule.
// The none rule is rejected with ErrNoRecurrence.
func (r *Registry) ComputeNextOccurrence(t time.Time, id string) (time.Time, error) {
	if IsNone(id) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNoRecurrence, id)
	}
	rule, ok := r.Lookup(id)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRule, id)
	}
	return rule.Next(t), nil
}
