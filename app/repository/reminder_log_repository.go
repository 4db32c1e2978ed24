package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
)

// reminderLogRepository implements the ReminderLogRepository interface
type reminderLogRepository struct {
	db *gorm.DB
}

// NewReminderLogRepository creates a new reminder log repository instance
func NewReminderLogRepository(db *gorm.DB) ReminderLogRepository {
	return &reminderLogRepository{db: db}
}

func (r *reminderLogRepository) Log(deadlineID, userID uint, window int, email, subject string, sentAt time.Time) error {
	return models.LogReminder(r.db, deadlineID, userID, window, email, subject, sentAt)
}

func (r *reminderLogRepository) CountSentSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ReminderLog{}).
		Where("sent_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *reminderLogRepository) ListSentBetween(from, to time.Time) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	err := r.db.
		Where("sent_at >= ? AND sent_at < ?", from, to).
		Order("sent_at ASC").
		Find(&logs).Error
	return logs, err
}
