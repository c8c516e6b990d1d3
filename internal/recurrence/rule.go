package recurrence

import (
	"strings"
	"time"
)

// Built-in rule identifiers.
const (
	RuleNone       = "none"
	RuleHourly     = "hourly"
	RuleDaily      = "daily"
	RuleWeekly     = "weekly"
	RuleMonthly    = "monthly"
	RuleYearly     = "yearly"
	RuleSixMinutes = "six_minutes"
	RuleTenMinutes = "ten_minutes"
)

// Rule computes the next occurrence of a repeating schedule. Implementations
// must be pure: identical inputs always yield identical outputs.
type Rule interface {
	ID() string
	Label() string
	// Weight orders rules when they are listed for selection.
	Weight() int
	Next(t time.Time) time.Time
}

// NewDurationRule returns a rule that advances by a fixed duration.
func NewDurationRule(id, label string, weight int, period time.Duration) Rule {
	return durationRule{
		meta:   newMeta(id, label, weight),
		period: period,
	}
}

// NewCalendarRule returns a rule that advances using calendar arithmetic.
// Overflowing days are normalised the same way time.AddDate does, so adding
// one month to January 31 lands on March 3 (March 2 in leap years).
func NewCalendarRule(id, label string, weight, years, months, days int) Rule {
	return calendarRule{
		meta:   newMeta(id, label, weight),
		years:  years,
		months: months,
		days:   days,
	}
}

// NewDaysRule returns a calendar rule repeating every n days.
func NewDaysRule(id, label string, weight, n int) Rule {
	return NewCalendarRule(id, label, weight, 0, 0, n)
}

// Builtins returns the rules registered by NewDefaultRegistry.
func Builtins() []Rule {
	return []Rule{
		noneRule{meta: newMeta(RuleNone, "None", -100)},
		NewDurationRule(RuleHourly, "Hourly", 10, time.Hour),
		NewDurationRule(RuleDaily, "Daily", 20, 24*time.Hour),
		NewDurationRule(RuleWeekly, "Weekly", 30, 7*24*time.Hour),
		NewCalendarRule(RuleMonthly, "Monthly", 40, 0, 1, 0),
		NewCalendarRule(RuleYearly, "Yearly", 50, 1, 0, 0),
		NewDurationRule(RuleSixMinutes, "Every 6 minutes (testing)", 90, 6*time.Minute),
		NewDurationRule(RuleTenMinutes, "Every 10 minutes (testing)", 91, 10*time.Minute),
	}
}

// IsNone reports whether id selects no recurrence.
func IsNone(id string) bool {
	normalized := normalizeID(id)
	return normalized == "" || normalized == RuleNone
}

type meta struct {
	id     string
	label  string
	weight int
}

func newMeta(id, label string, weight int) meta {
	id = normalizeID(id)
	label = strings.TrimSpace(label)
	if label == "" {
		label = id
	}
	return meta{id: id, label: label, weight: weight}
}

func (m meta) ID() string    { return m.id }
func (m meta) Label() string { return m.label }
func (m meta) Weight() int   { return m.weight }

type durationRule struct {
	meta
	period time.Duration
}

func (r durationRule) Next(t time.Time) time.Time {
	return t.Add(r.period)
}

type calendarRule struct {
	meta
	years  int
	months int
	days   int
}

func (r calendarRule) Next(t time.Time) time.Time {
	return t.AddDate(r.years, r.months, r.days)
}

// noneRule is listed for selection but never advances.
type noneRule struct {
	meta
}

func (noneRule) Next(t time.Time) time.Time {
	return t
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
