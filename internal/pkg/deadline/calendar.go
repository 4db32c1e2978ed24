package deadline

import "time"

// Date truncates a timestamp to its calendar day, normalized to midnight UTC.
// All day-count computations in this package operate on calendar days, never
// on elapsed durations, so DST and timezone offsets cannot shift results.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day difference due - today. Negative when the
// due date has already passed, zero when due today.
func DaysBetween(due, today time.Time) int {
	d := Date(due).Sub(Date(today))
	return int(d.Hours() / 24)
}
