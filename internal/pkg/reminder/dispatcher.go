package reminder

import (
	"context"
	"log"
	"time"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/deadline"
	"github.com/duedesk/DueDesk/internal/pkg/mail"
)

// DeadlineStore is the slice of the deadline repository the dispatcher needs.
type DeadlineStore interface {
	ListDueOnOrAfter(date time.Time) ([]models.Deadline, error)
	MarkReminderSent(id uint, at time.Time) error
}

// UserStore resolves deadline owners and their notification preferences.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	GetSettings(userID uint) (*models.UserSettings, error)
}

// SendLog records confirmed sends for auditing.
type SendLog interface {
	Log(deadlineID, userID uint, window int, email, subject string, sentAt time.Time) error
}

// sentCounter is an optional hook incrementing a per-deadline send counter.
// The process entrypoint wires it to the Redis-backed metrics counter; tests
// leave it nil.
var sentCounter func(deadlineID uint) error

// SetSentCounter installs the per-deadline send counter hook.
func SetSentCounter(fn func(deadlineID uint) error) {
	sentCounter = fn
}

// Result summarizes one dispatch run.
type Result struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Dispatcher walks all upcoming deadlines once and sends email reminders for
// every deadline sitting at a reminder window. Delivery is at-least-once: the
// last-sent marker is only advanced after the mailer confirms the send, so a
// crash between send and mark leads to a duplicate, never a lost reminder.
type Dispatcher struct {
	deadlines DeadlineStore
	users     UserStore
	sendLog   SendLog
	mailer    mail.Mailer
	now       func() time.Time
}

// NewDispatcher wires a dispatcher from its dependencies.
func NewDispatcher(deadlines DeadlineStore, users UserStore, sendLog SendLog, mailer mail.Mailer) *Dispatcher {
	return &Dispatcher{
		deadlines: deadlines,
		users:     users,
		sendLog:   sendLog,
		mailer:    mailer,
		now:       time.Now,
	}
}

// Run performs a single dispatch pass. A failure on one deadline is logged
// and counted as skipped; the pass always continues to the end.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	now := d.now()
	today := deadline.Date(now)

	items, err := d.deadlines.ListDueOnOrAfter(today)
	if err != nil {
		return Result{}, err
	}

	result := Result{Total: len(items)}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := &items[i]
		days := item.DaysUntilDue(today)
		if !deadline.ShouldRemind(days, item.LastReminderSent, now) {
			result.Skipped++
			continue
		}

		if d.dispatchOne(item, days, now) {
			result.Sent++
		} else {
			result.Skipped++
		}
	}

	log.Printf("[Reminder] dispatch complete: %d sent, %d skipped of %d deadlines",
		result.Sent, result.Skipped, result.Total)
	return result, nil
}

// dispatchOne sends the reminder for a single deadline and reports whether a
// send was confirmed.
func (d *Dispatcher) dispatchOne(item *models.Deadline, days int, now time.Time) bool {
	user, err := d.users.GetByID(item.UserID)
	if err != nil {
		log.Printf("[Reminder] owner %d of deadline %s not found: %v", item.UserID, item.UUID, err)
		return false
	}

	settings, err := d.users.GetSettings(user.ID)
	if err != nil {
		log.Printf("[Reminder] settings lookup failed for user %d: %v", user.ID, err)
		return false
	}
	if !settings.EmailReminders {
		return false
	}

	subject, body := RenderReminderEmail(item, days)
	if err := d.mailer.Send(user.Email, subject, body); err != nil {
		log.Printf("[Reminder] send failed for deadline %s to %s: %v", item.UUID, user.Email, err)
		return false
	}

	// Marker advances only after a confirmed send.
	if err := d.deadlines.MarkReminderSent(item.ID, now); err != nil {
		log.Printf("[Reminder] failed to mark deadline %s as reminded: %v", item.UUID, err)
	}
	if err := d.sendLog.Log(item.ID, user.ID, days, user.Email, subject, now); err != nil {
		log.Printf("[Reminder] failed to log send for deadline %s: %v", item.UUID, err)
	}
	if sentCounter != nil {
		if err := sentCounter(item.ID); err != nil {
			log.Printf("[Reminder] send counter increment failed for deadline %d: %v", item.ID, err)
		}
	}
	return true
}
