package recurrence_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-cms-scheduler/internal/recurrence"
)

func TestComputeNextOccurrenceFixedPeriods(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	base := time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC)

	cases := []struct {
		rule  string
		delta int64
	}{
		{rule: recurrence.RuleHourly, delta: 3600},
		{rule: recurrence.RuleDaily, delta: 86400},
		{rule: recurrence.RuleWeekly, delta: 604800},
		{rule: recurrence.RuleSixMinutes, delta: 360},
		{rule: recurrence.RuleTenMinutes, delta: 600},
		{rule: "six-minute", delta: 360},
		{rule: "ten-minute", delta: 600},
		{rule: " Daily ", delta: 86400},
	}

	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			next, err := reg.ComputeNextOccurrence(base, tc.rule)
			if err != nil {
				t.Fatalf("compute next: %v", err)
			}
			if got := next.Unix() - base.Unix(); got != tc.delta {
				t.Fatalf("expected +%ds, got +%ds", tc.delta, got)
			}
		})
	}
}

func TestComputeNextOccurrenceDailyIgnoresDSTShift(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	reg := recurrence.NewDefaultRegistry()
	// The night of 2024-03-31 is 23 hours long in Madrid.
	base := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)

	next, err := reg.ComputeNextOccurrence(base, recurrence.RuleDaily)
	if err != nil {
		t.Fatalf("compute next: %v", err)
	}
	if got := next.Unix() - base.Unix(); got != 86400 {
		t.Fatalf("expected exactly 86400s, got %d", got)
	}
	if next.Hour() != 13 {
		t.Fatalf("expected wall clock to shift to 13:00, got %v", next)
	}
}

func TestComputeNextOccurrenceMonthlyOverflow(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "jan 31 rolls into march",
			in:   time.Date(2023, 1, 31, 9, 0, 0, 0, time.UTC),
			want: time.Date(2023, 3, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 leap year rolls into march 2",
			in:   time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "march 31 rolls to may 1",
			in:   time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "mid month keeps day",
			in:   time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reg.ComputeNextOccurrence(tc.in, recurrence.RuleMonthly)
			if err != nil {
				t.Fatalf("compute next: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestComputeNextOccurrenceYearlyLeapDay(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	in := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	got, err := reg.ComputeNextOccurrence(in, recurrence.RuleYearly)
	if err != nil {
		t.Fatalf("compute next: %v", err)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeNextOccurrenceIsDeterministic(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	base := time.Date(2024, 8, 31, 23, 59, 59, 0, time.UTC)

	for _, rule := range reg.Rules() {
		if recurrence.IsNone(rule.ID()) {
			continue
		}
		first, err := reg.ComputeNextOccurrence(base, rule.ID())
		if err != nil {
			t.Fatalf("%s: %v", rule.ID(), err)
		}
		second, err := reg.ComputeNextOccurrence(base, rule.ID())
		if err != nil {
			t.Fatalf("%s: %v", rule.ID(), err)
		}
		if !first.Equal(second) {
			t.Fatalf("%s: expected identical results, got %v and %v", rule.ID(), first, second)
		}
	}
}

func TestComputeNextOccurrenceRejectsNoneAndUnknown(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	now := time.Now()

	if _, err := reg.ComputeNextOccurrence(now, recurrence.RuleNone); !errors.Is(err, recurrence.ErrNoRecurrence) {
		t.Fatalf("expected ErrNoRecurrence, got %v", err)
	}
	if _, err := reg.ComputeNextOccurrence(now, ""); !errors.Is(err, recurrence.ErrNoRecurrence) {
		t.Fatalf("expected ErrNoRecurrence for empty id, got %v", err)
	}
	if _, err := reg.ComputeNextOccurrence(now, "fortnightly"); !errors.Is(err, recurrence.ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
}

func TestMustLookupPanicsForUnknownRule(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("expected panic")
		}
		err, ok := recovered.(error)
		if !ok || !errors.Is(err, recurrence.ErrUnknownRule) {
			t.Fatalf("expected ErrUnknownRule panic, got %v", recovered)
		}
	}()
	reg.MustLookup("every_full_moon")
}

func TestRegisterCustomRule(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	if err := reg.Register(recurrence.NewDaysRule("every_3_days", "Every 3 days", 25, 3)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(recurrence.NewDaysRule("EVERY_3_DAYS", "dup", 1, 3)); !errors.Is(err, recurrence.ErrRuleExists) {
		t.Fatalf("expected ErrRuleExists, got %v", err)
	}
	if err := reg.Register(recurrence.NewDaysRule("six-minute", "clash", 1, 1)); !errors.Is(err, recurrence.ErrRuleExists) {
		t.Fatalf("expected alias clash to be rejected, got %v", err)
	}
	if err := reg.Register(nil); !errors.Is(err, recurrence.ErrRuleRequired) {
		t.Fatalf("expected ErrRuleRequired, got %v", err)
	}

	base := time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC)
	next, err := reg.ComputeNextOccurrence(base, "every_3_days")
	if err != nil {
		t.Fatalf("compute next: %v", err)
	}
	if want := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}

	ids := make([]string, 0)
	for _, rule := range reg.Rules() {
		ids = append(ids, rule.ID())
	}
	want := []string{"none", "hourly", "daily", "every_3_days", "weekly", "monthly", "yearly", "six_minutes", "ten_minutes"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestRegistryConcurrentLookups(t *testing.T) {
	reg := recurrence.NewDefaultRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				_ = reg.Register(recurrence.NewDurationRule("custom_"+string(rune('a'+i)), "", i, time.Minute))
			}
			if _, err := reg.ComputeNextOccurrence(base, recurrence.RuleWeekly); err != nil {
				t.Errorf("compute next: %v", err)
			}
		}(i)
	}
	wg.Wait()
}
