package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/internal/pkg/deadline"
)

const (
	CategoryLicense   = "license"
	CategoryInsurance = "insurance"
	CategoryContract  = "contract"
	CategoryPersonal  = "personal"
	CategoryOther     = "other"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Deadline is a tracked compliance obligation. The urgency tier is derived
// from the due date on every read and is never stored.
type Deadline struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UUID               string         `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	User               User           `gorm:"foreignKey:UserID" json:"-"`
	TenantID           *uint          `gorm:"index" json:"tenant_id,omitempty"`
	Title              string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Description        string         `gorm:"type:text" json:"description" validate:"max=2000"`
	Category           string         `gorm:"type:varchar(32);not null;default:'other';index" json:"category" validate:"oneof=license insurance contract personal other"`
	DueDate            time.Time      `gorm:"type:date;not null;index" json:"due_date"`
	Severity           string         `gorm:"type:varchar(16);not null;default:'medium'" json:"severity" validate:"oneof=low medium high critical"`
	Recurrence         string         `gorm:"type:varchar(16);not null;default:'none'" json:"recurrence" validate:"oneof=none monthly quarterly semi_annual annual biennial custom"`
	CustomIntervalDays int            `gorm:"default:0" json:"custom_interval_days,omitempty" validate:"min=0,max=3650"`
	AutoRenew          bool           `gorm:"default:false" json:"auto_renew"`
	LastReminderSent   *time.Time     `gorm:"type:timestamp;default:null" json:"last_reminder_sent,omitempty"`
	ReminderCount      int            `gorm:"not null;default:0" json:"reminder_count"`
	PredecessorID      *uint          `gorm:"index" json:"predecessor_id,omitempty"`
	Cost               string         `gorm:"type:varchar(100);default:''" json:"cost,omitempty"`
	ReferenceNumber    string         `gorm:"type:varchar(100);default:''" json:"reference_number,omitempty"`
	Authority          string         `gorm:"type:varchar(200);default:''" json:"authority,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Deadline) Validate() error {
	v := validator.New()

	return v.Struct(d)
}

// BeforeCreate assigns the public identifier.
func (d *Deadline) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	return nil
}

// Urgency computes the current tier for this deadline.
func (d *Deadline) Urgency(today time.Time) deadline.Urgency {
	return deadline.Classify(d.DueDate, today)
}

// DaysUntilDue returns the calendar-day difference to the due date.
func (d *Deadline) DaysUntilDue(today time.Time) int {
	return deadline.DaysBetween(d.DueDate, today)
}

// IsRecurring reports whether this deadline reschedules after its due date.
func (d *Deadline) IsRecurring() bool {
	return deadline.RecurrencePattern(d.Recurrence).IsRepeating()
}

// NextOccurrence computes the successor due date from the recurrence pattern.
func (d *Deadline) NextOccurrence() time.Time {
	return deadline.NextDueDate(d.DueDate, deadline.RecurrencePattern(d.Recurrence), d.CustomIntervalDays)
}

// SpawnSuccessor builds the follow-up deadline record for an auto-renewing
// obligation, inheriting all descriptive fields and linking back to the
// original. Reminder state starts fresh.
func (d *Deadline) SpawnSuccessor() *Deadline {
	return &Deadline{
		UserID:             d.UserID,
		TenantID:           d.TenantID,
		Title:              d.Title,
		Description:        d.Description,
		Category:           d.Category,
		DueDate:            d.NextOccurrence(),
		Severity:           d.Severity,
		Recurrence:         d.Recurrence,
		CustomIntervalDays: d.CustomIntervalDays,
		AutoRenew:          d.AutoRenew,
		PredecessorID:      &d.ID,
		Cost:               d.Cost,
		ReferenceNumber:    d.ReferenceNumber,
		Authority:          d.Authority,
	}
}
