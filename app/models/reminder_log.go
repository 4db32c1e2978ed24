package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderLog records every confirmed reminder send for auditing and the
// dispatch report shown to admins.
type ReminderLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeadlineID uint      `gorm:"not null;index" json:"deadline_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Window     int       `gorm:"not null" json:"window"` // days-before-due value that triggered the send
	Email      string    `gorm:"type:varchar(200);not null" json:"email"`
	Subject    string    `gorm:"type:varchar(255)" json:"subject"`
	SentAt     time.Time `gorm:"not null;index" json:"sent_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LogReminder persists a send record.
func LogReminder(db *gorm.DB, deadlineID, userID uint, window int, email, subject string, sentAt time.Time) error {
	entry := ReminderLog{
		DeadlineID: deadlineID,
		UserID:     userID,
		Window:     window,
		Email:      email,
		Subject:    subject,
		SentAt:     sentAt,
	}

	return db.Create(&entry).Error
}
