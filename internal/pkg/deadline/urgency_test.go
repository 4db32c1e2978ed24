package deadline

import (
	"testing"
	"time"
)

func TestClassifyDaysBoundaries(t *testing.T) {
	tests := []struct {
		days int
		want Urgency
	}{
		{days: -30, want: UrgencyOverdue},
		{days: -1, want: UrgencyOverdue},
		{days: 0, want: UrgencyCritical},
		{days: 3, want: UrgencyCritical},
		{days: 4, want: UrgencyUrgent},
		{days: 7, want: UrgencyUrgent},
		{days: 8, want: UrgencyWarning},
		{days: 14, want: UrgencyWarning},
		{days: 15, want: UrgencyUpcoming},
		{days: 30, want: UrgencyUpcoming},
		{days: 31, want: UrgencySafe},
		{days: 365, want: UrgencySafe},
	}

	for _, tt := range tests {
		if got := ClassifyDays(tt.days); got != tt.want {
			t.Fatalf("ClassifyDays(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestClassifyDaysIsMonotonic(t *testing.T) {
	prev := ClassifyDays(-100)
	for d := -99; d <= 100; d++ {
		cur := ClassifyDays(d)
		if cur.Rank() < prev.Rank() {
			t.Fatalf("tier regressed at d=%d: %q after %q", d, cur, prev)
		}
		prev = cur
	}
}

func TestClassifyUsesCalendarDays(t *testing.T) {
	// Less than 24h of elapsed time but a different calendar day must still
	// count as one day.
	today := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	due := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)

	if got := DaysBetween(due, today); got != 1 {
		t.Fatalf("DaysBetween = %d, want 1", got)
	}
	if got := Classify(due, today); got != UrgencyCritical {
		t.Fatalf("Classify = %q, want %q", got, UrgencyCritical)
	}
}

func TestClassifyDueTodayIsCritical(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if got := Classify(now, now); got != UrgencyCritical {
		t.Fatalf("same-day Classify = %q, want critical", got)
	}
}
