package domain

import "strings"

// Action identifies a scheduled state transition.
type Action string

const (
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
)

// Actions lists the transitions in the order a sweep processes them.
func Actions() []Action {
	return []Action{ActionPublish, ActionUnpublish}
}

// ParseAction resolves user supplied input into an Action.
func ParseAction(input string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(input))) {
	case ActionPublish:
		return ActionPublish, true
	case ActionUnpublish:
		return ActionUnpublish, true
	default:
		return "", false
	}
}

// Valid reports whether the action is one of the known transitions.
func (a Action) Valid() bool {
	return a == ActionPublish || a == ActionUnpublish
}

// TargetStatus returns the status an entity holds after the action is applied.
func (a Action) TargetStatus() Status {
	if a == ActionPublish {
		return StatusPublished
	}
	return StatusUnpublished
}

func (a Action) String() string {
	return string(a)
}

// PastDatePolicy controls how a publish date that is already in the past is
// handled when an entity is saved.
type PastDatePolicy string

const (
	// PastDateError rejects the save.
	PastDateError PastDatePolicy = "error"
	// PastDatePublish publishes the entity immediately.
	PastDatePublish PastDatePolicy = "publish"
	// PastDateSchedule keeps the date and lets the next sweep publish it.
	PastDateSchedule PastDatePolicy = "schedule"
)

// NormalizePastDatePolicy maps arbitrary input to a known policy, defaulting to PastDateError.
func NormalizePastDatePolicy(input string) (PastDatePolicy, bool) {
	switch PastDatePolicy(strings.ToLower(strings.TrimSpace(input))) {
	case "", PastDateError:
		return PastDateError, true
	case PastDatePublish:
		return PastDatePublish, true
	case PastDateSchedule:
		return PastDateSchedule, true
	default:
		return PastDateError, false
	}
}
