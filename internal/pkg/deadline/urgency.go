package deadline

import "time"

// Urgency is the derived status tier of a deadline. It is computed on every
// read and never persisted.
type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyWarning  Urgency = "warning"
	UrgencyUpcoming Urgency = "upcoming"
	UrgencySafe     Urgency = "safe"
)

// Classify maps a due date to an urgency tier relative to today. The bands
// are evaluated in order, upper boundaries inclusive: a deadline due today is
// critical, not overdue; overdue requires the date to have passed.
func Classify(due, today time.Time) Urgency {
	return ClassifyDays(DaysBetween(due, today))
}

// ClassifyDays maps a days-until-due count to an urgency tier. Total over all
// integers: every value lands in exactly one tier.
func ClassifyDays(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= 3:
		return UrgencyCritical
	case days <= 7:
		return UrgencyUrgent
	case days <= 14:
		return UrgencyWarning
	case days <= 30:
		return UrgencyUpcoming
	default:
		return UrgencySafe
	}
}

// Rank orders urgency tiers from most to least pressing. Lower is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyOverdue:
		return 0
	case UrgencyCritical:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyWarning:
		return 3
	case UrgencyUpcoming:
		return 4
	default:
		return 5
	}
}
