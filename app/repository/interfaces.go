package repository

import (
	"time"

	"github.com/duedesk/DueDesk/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	GetSettings(userID uint) (*models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// DeadlineRepository defines the interface for deadline-related database
// operations. Visibility follows the owner-or-tenant-member rule everywhere a
// caller identity is involved.
type DeadlineRepository interface {
	Create(deadline *models.Deadline) error
	GetByID(id uint) (*models.Deadline, error)
	GetByUUID(uuid string) (*models.Deadline, error)
	// GetVisibleByUUID returns the deadline only when the user owns it or
	// belongs to the tenant it is shared with.
	GetVisibleByUUID(uuid string, userID uint) (*models.Deadline, error)
	// ListVisibleToUser returns all deadlines the user owns plus those shared
	// with tenants the user is a member of.
	ListVisibleToUser(userID uint) ([]models.Deadline, error)
	ListDueOnOrAfter(date time.Time) ([]models.Deadline, error)
	ListOverdueAutoRenew(today time.Time) ([]models.Deadline, error)
	HasSuccessor(parentID uint) (bool, error)
	// MarkReminderSent persists the confirmed-send timestamp as a single-row
	// conditional write.
	MarkReminderSent(id uint, at time.Time) error
	Update(deadline *models.Deadline) error
	Delete(id uint) error
	CountActiveByUser(userID uint) (int64, error)
	CountCreatedSince(userID uint, since time.Time) (int64, error)
}

// TenantRepository defines the interface for organization operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	ListForUser(userID uint) ([]models.Tenant, error)
	AddMember(member *models.TenantMember) error
	IsMember(tenantID, userID uint) (bool, error)
	MemberRole(tenantID, userID uint) (string, error)
	CountMembers(tenantID uint) (int64, error)
	ListMembers(tenantID uint) ([]models.TenantMember, error)
	CreateInvite(invite *models.TenantInvite) error
	GetInviteByToken(token string) (*models.TenantInvite, error)
	MarkInviteAccepted(inviteID uint, at time.Time) error
}

// ReminderLogRepository records confirmed reminder sends.
type ReminderLogRepository interface {
	Log(deadlineID, userID uint, window int, email, subject string, sentAt time.Time) error
	CountSentSince(since time.Time) (int64, error)
	ListSentBetween(from, to time.Time) ([]models.ReminderLog, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	Deadline    DeadlineRepository
	Tenant      TenantRepository
	ReminderLog ReminderLogRepository
}
