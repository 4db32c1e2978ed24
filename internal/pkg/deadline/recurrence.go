package deadline

import "time"

// RecurrencePattern describes how a deadline repeats after its due date.
type RecurrencePattern string

const (
	RecurrenceNone       RecurrencePattern = "none"
	RecurrenceMonthly    RecurrencePattern = "monthly"
	RecurrenceQuarterly  RecurrencePattern = "quarterly"
	RecurrenceSemiAnnual RecurrencePattern = "semi_annual"
	RecurrenceAnnual     RecurrencePattern = "annual"
	RecurrenceBiennial   RecurrencePattern = "biennial"
	RecurrenceCustom     RecurrencePattern = "custom"
)

// DefaultCustomIntervalDays is used for custom recurrences without an
// explicit interval.
const DefaultCustomIntervalDays = 365

// ValidRecurrence reports whether p is a known pattern.
func ValidRecurrence(p RecurrencePattern) bool {
	switch p {
	case RecurrenceNone, RecurrenceMonthly, RecurrenceQuarterly,
		RecurrenceSemiAnnual, RecurrenceAnnual, RecurrenceBiennial, RecurrenceCustom:
		return true
	}
	return false
}

// IsRepeating reports whether the pattern produces a future occurrence.
func (p RecurrencePattern) IsRepeating() bool {
	return ValidRecurrence(p) && p != RecurrenceNone
}

// NextDueDate computes the next occurrence for a repeating deadline.
// RecurrenceNone returns current unchanged, signaling "do not reschedule".
//
// Month and year additions clamp to the last valid day of the target month:
// Jan 31 + 1 month lands on Feb 28 (29 in leap years), and Feb 29 + 1 year
// lands on Feb 28. Go's time.AddDate would normalize overflow forward into
// the following month instead, which is not calendar arithmetic a renewal
// schedule wants.
func NextDueDate(current time.Time, pattern RecurrencePattern, customIntervalDays int) time.Time {
	switch pattern {
	case RecurrenceMonthly:
		return addMonthsClamped(current, 1)
	case RecurrenceQuarterly:
		return addMonthsClamped(current, 3)
	case RecurrenceSemiAnnual:
		return addMonthsClamped(current, 6)
	case RecurrenceAnnual:
		return addMonthsClamped(current, 12)
	case RecurrenceBiennial:
		return addMonthsClamped(current, 24)
	case RecurrenceCustom:
		if customIntervalDays <= 0 {
			customIntervalDays = DefaultCustomIntervalDays
		}
		return Date(current).AddDate(0, 0, customIntervalDays)
	default:
		return Date(current)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := Date(t).Date()

	total := int(m) - 1 + months
	year := y + total/12
	month := time.Month(total%12 + 1)

	if max := daysInMonth(year, month); d > max {
		d = max
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
