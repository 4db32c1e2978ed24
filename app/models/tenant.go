package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/internal/pkg/security"
)

const (
	TenantRoleOwner  = "owner"
	TenantRoleAdmin  = "admin"
	TenantRoleMember = "member"
)

// Tenant is an organization whose members share visibility into deadlines
// assigned to it.
type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// TenantMember links a user to a tenant with a role.
type TenantMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;index:ux_tenant_members_tenant_user,unique,priority:1" json:"tenant_id"`
	UserID    uint      `gorm:"not null;index:ux_tenant_members_tenant_user,unique,priority:2;index" json:"user_id"`
	Role      string    `gorm:"type:varchar(16);not null;default:'member'" json:"role" validate:"oneof=owner admin member"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TenantInvite is a pending email invitation into a tenant.
type TenantInvite struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`
	Email      string     `gorm:"type:varchar(200);not null;index" json:"email" validate:"required,email"`
	Token      string     `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	InvitedBy  uint       `gorm:"not null" json:"invited_by"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `gorm:"type:timestamp;default:null" json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

const inviteTTL = 7 * 24 * time.Hour

// NewTenantInvite builds an invitation with a random token and expiry.
func NewTenantInvite(tenantID, invitedBy uint, email string) (*TenantInvite, error) {
	token, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	return &TenantInvite{
		TenantID:  tenantID,
		Email:     email,
		Token:     token,
		InvitedBy: invitedBy,
		ExpiresAt: time.Now().Add(inviteTTL),
	}, nil
}

// IsExpired reports whether the invite can no longer be accepted.
func (i *TenantInvite) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsAccepted reports whether the invite has already been used.
func (i *TenantInvite) IsAccepted() bool {
	return i.AcceptedAt != nil
}
