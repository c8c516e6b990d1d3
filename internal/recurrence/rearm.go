package recurrence

import "time"

// Occurrence holds the schedule for the following cycle.
type Occurrence struct {
	PublishAt   time.Time
	UnpublishAt time.Time
}

// Rearm advances both timestamps that were set when a transition fired by one
// period of the rule. It reports false without error when the rule does not
// repeat or either timestamp is missing.
func (r *Registry) Rearm(ruleID string, publishAt, unpublishAt *time.Time) (Occurrence, bool, error) {
	if IsNone(ruleID) || publishAt == nil || unpublishAt == nil {
		return Occurrence{}, false, nil
	}
	nextPublish, err := r.ComputeNextOccurrence(*publishAt, ruleID)
	if err != nil {
		return Occurrence{}, false, err
	}
	nextUnpublish, err := r.ComputeNextOccurrence(*unpublishAt, ruleID)
	if err != nil {
		return Occurrence{}, false, err
	}
	return Occurrence{PublishAt: nextPublish, UnpublishAt: nextUnpublish}, true, nil
}
