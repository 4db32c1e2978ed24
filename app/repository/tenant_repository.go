package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		owner := models.TenantMember{
			TenantID: tenant.ID,
			UserID:   tenant.OwnerID,
			Role:     models.TenantRoleOwner,
		}
		return tx.Create(&owner).Error
	})
}

func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) ListForUser(userID uint) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.
		Joins("JOIN tenant_members ON tenant_members.tenant_id = tenants.id").
		Where("tenant_members.user_id = ?", userID).
		Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) AddMember(member *models.TenantMember) error {
	return r.db.Create(member).Error
}

func (r *tenantRepository) IsMember(tenantID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.TenantMember{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *tenantRepository) MemberRole(tenantID, userID uint) (string, error) {
	var member models.TenantMember
	err := r.db.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&member).Error
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (r *tenantRepository) CountMembers(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TenantMember{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

func (r *tenantRepository) ListMembers(tenantID uint) ([]models.TenantMember, error) {
	var members []models.TenantMember
	err := r.db.Where("tenant_id = ?", tenantID).Find(&members).Error
	return members, err
}

func (r *tenantRepository) CreateInvite(invite *models.TenantInvite) error {
	return r.db.Create(invite).Error
}

func (r *tenantRepository) GetInviteByToken(token string) (*models.TenantInvite, error) {
	var invite models.TenantInvite
	if err := r.db.Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *tenantRepository) MarkInviteAccepted(inviteID uint, at time.Time) error {
	return r.db.Model(&models.TenantInvite{}).
		Where("id = ?", inviteID).
		Update("accepted_at", at).Error
}
