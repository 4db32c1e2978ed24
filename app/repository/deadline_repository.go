package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
)

// deadlineRepository implements the DeadlineRepository interface
type deadlineRepository struct {
	db *gorm.DB
}

// NewDeadlineRepository creates a new deadline repository instance
func NewDeadlineRepository(db *gorm.DB) DeadlineRepository {
	return &deadlineRepository{db: db}
}

func (r *deadlineRepository) Create(deadline *models.Deadline) error {
	return r.db.Create(deadline).Error
}

func (r *deadlineRepository) GetByID(id uint) (*models.Deadline, error) {
	var d models.Deadline
	if err := r.db.First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deadlineRepository) GetByUUID(uuid string) (*models.Deadline, error) {
	var d models.Deadline
	if err := r.db.Where("uuid = ?", uuid).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// visibleScope restricts a query to rows the user owns or that are shared
// with a tenant the user belongs to.
func (r *deadlineRepository) visibleScope(userID uint) *gorm.DB {
	memberTenants := r.db.Model(&models.TenantMember{}).
		Select("tenant_id").
		Where("user_id = ?", userID)

	return r.db.Where("user_id = ? OR tenant_id IN (?)", userID, memberTenants)
}

func (r *deadlineRepository) GetVisibleByUUID(uuid string, userID uint) (*models.Deadline, error) {
	var d models.Deadline
	err := r.visibleScope(userID).Where("uuid = ?", uuid).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deadlineRepository) ListVisibleToUser(userID uint) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := r.visibleScope(userID).Order("due_date ASC").Find(&deadlines).Error
	return deadlines, err
}

func (r *deadlineRepository) ListDueOnOrAfter(date time.Time) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := r.db.Where("due_date >= ?", date.Format("2006-01-02")).
		Order("due_date ASC").
		Find(&deadlines).Error
	return deadlines, err
}

func (r *deadlineRepository) ListOverdueAutoRenew(today time.Time) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := r.db.Where("due_date < ? AND auto_renew = ? AND recurrence <> ?",
		today.Format("2006-01-02"), true, "none").
		Find(&deadlines).Error
	return deadlines, err
}

func (r *deadlineRepository) HasSuccessor(parentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Deadline{}).Where("predecessor_id = ?", parentID).Count(&count).Error
	return count > 0, err
}

func (r *deadlineRepository) MarkReminderSent(id uint, at time.Time) error {
	return r.db.Model(&models.Deadline{}).
		Where("id = ?", id).
		Update("last_reminder_sent", at).Error
}

func (r *deadlineRepository) Update(deadline *models.Deadline) error {
	return r.db.Save(deadline).Error
}

func (r *deadlineRepository) Delete(id uint) error {
	return r.db.Delete(&models.Deadline{}, id).Error
}

func (r *deadlineRepository) CountActiveByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Deadline{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *deadlineRepository) CountCreatedSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Deadline{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
