package deadline

import "time"

// ReminderWindows are the days-before-due values at which a reminder is
// eligible to fire, in descending order. The schedule is fixed for all
// severity levels.
var ReminderWindows = []int{30, 14, 7, 3, 1}

// MinReminderGap is the minimum elapsed time between two reminder sends for
// the same deadline. It prevents duplicate sends from overlapping scheduled
// runs while still allowing one reminder per window crossing under a daily
// dispatch cadence.
const MinReminderGap = 24 * time.Hour

// AtReminderWindow reports whether daysUntilDue equals one of the reminder
// window values.
func AtReminderWindow(daysUntilDue int) bool {
	for _, w := range ReminderWindows {
		if daysUntilDue == w {
			return true
		}
	}
	return false
}

// ShouldRemind decides whether a reminder should fire now. A deadline not
// sitting exactly at a window never fires. The first reminder for a deadline
// always fires; subsequent ones only after MinReminderGap has elapsed since
// the last confirmed send. Callers must leave the last-sent timestamp
// untouched when the downstream send fails, so the next cycle retries
// naturally (at-least-once delivery).
func ShouldRemind(daysUntilDue int, lastReminderSent *time.Time, now time.Time) bool {
	if !AtReminderWindow(daysUntilDue) {
		return false
	}
	if lastReminderSent == nil {
		return true
	}
	return now.Sub(*lastReminderSent) >= MinReminderGap
}
