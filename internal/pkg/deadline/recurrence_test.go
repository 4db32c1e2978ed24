package deadline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDatePatterns(t *testing.T) {
	start := date(2026, 3, 15)

	tests := []struct {
		pattern    RecurrencePattern
		customDays int
		want       time.Time
	}{
		{pattern: RecurrenceMonthly, want: date(2026, 4, 15)},
		{pattern: RecurrenceQuarterly, want: date(2026, 6, 15)},
		{pattern: RecurrenceSemiAnnual, want: date(2026, 9, 15)},
		{pattern: RecurrenceAnnual, want: date(2027, 3, 15)},
		{pattern: RecurrenceBiennial, want: date(2028, 3, 15)},
		{pattern: RecurrenceCustom, customDays: 90, want: date(2026, 6, 13)},
		{pattern: RecurrenceCustom, customDays: 0, want: date(2027, 3, 15)},
		{pattern: RecurrenceNone, want: start},
	}

	for _, tt := range tests {
		got := NextDueDate(start, tt.pattern, tt.customDays)
		if !got.Equal(tt.want) {
			t.Fatalf("NextDueDate(%s, %s, %d) = %s, want %s",
				start.Format("2006-01-02"), tt.pattern, tt.customDays,
				got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}
}

func TestNextDueDateClampsMonthEnd(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		pattern RecurrencePattern
		want    time.Time
	}{
		{name: "jan 31 monthly clamps to feb 28", start: date(2026, 1, 31), pattern: RecurrenceMonthly, want: date(2026, 2, 28)},
		{name: "jan 31 monthly leap year clamps to feb 29", start: date(2024, 1, 31), pattern: RecurrenceMonthly, want: date(2024, 2, 29)},
		{name: "aug 31 monthly clamps to sep 30", start: date(2026, 8, 31), pattern: RecurrenceMonthly, want: date(2026, 9, 30)},
		{name: "nov 30 quarterly keeps day", start: date(2026, 11, 30), pattern: RecurrenceQuarterly, want: date(2027, 2, 28)},
		{name: "feb 29 annual clamps to feb 28", start: date(2024, 2, 29), pattern: RecurrenceAnnual, want: date(2025, 2, 28)},
		{name: "feb 29 biennial clamps to feb 28", start: date(2024, 2, 29), pattern: RecurrenceBiennial, want: date(2026, 2, 28)},
		{name: "dec monthly wraps year", start: date(2026, 12, 31), pattern: RecurrenceMonthly, want: date(2027, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.start, tt.pattern, 0)
			if !got.Equal(tt.want) {
				t.Fatalf("got %s, want %s", got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextDueDateAnnualIsExactYearForRegularDays(t *testing.T) {
	// Aside from Feb 29, an annual renewal lands on the same month and day.
	for _, start := range []time.Time{
		date(2026, 1, 1), date(2026, 6, 30), date(2026, 12, 31), date(2027, 2, 28),
	} {
		got := NextDueDate(start, RecurrenceAnnual, 0)
		want := date(start.Year()+1, start.Month(), start.Day())
		if !got.Equal(want) {
			t.Fatalf("annual from %s = %s, want %s",
				start.Format("2006-01-02"), got.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestValidRecurrence(t *testing.T) {
	for _, p := range []RecurrencePattern{
		RecurrenceNone, RecurrenceMonthly, RecurrenceQuarterly,
		RecurrenceSemiAnnual, RecurrenceAnnual, RecurrenceBiennial, RecurrenceCustom,
	} {
		if !ValidRecurrence(p) {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	if ValidRecurrence("weekly") {
		t.Fatalf("expected unknown pattern to be invalid")
	}
	if RecurrenceNone.IsRepeating() {
		t.Fatalf("none must not be repeating")
	}
	if !RecurrenceMonthly.IsRepeating() {
		t.Fatalf("monthly must be repeating")
	}
}
