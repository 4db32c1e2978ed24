package controllers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/app/repository"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
	"github.com/duedesk/DueDesk/internal/pkg/env"
	"github.com/duedesk/DueDesk/internal/pkg/mail"
	"github.com/duedesk/DueDesk/internal/pkg/usercontext"
)

type tenantCreateRequest struct {
	Name string `json:"name"`
}

type tenantInviteRequest struct {
	Email string `json:"email"`
}

// inviteMailer is swapped in tests; production uses SMTP.
var inviteMailer mail.Mailer

func getInviteMailer() mail.Mailer {
	if inviteMailer == nil {
		inviteMailer = mail.NewSMTPMailerFromEnv()
	}
	return inviteMailer
}

// HandleTenantCreate creates an organization owned by the current user.
func HandleTenantCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	var req tenantCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	limits := entitlements.LimitsFor(entitlements.NormalizePlan(userCtx.Plan))
	if limits.TeamMembers != entitlements.Unlimited && limits.TeamMembers <= 1 {
		return jsonError(c, fiber.StatusPaymentRequired, "plan_upgrade_required", "Organizations require a team plan")
	}

	tenant := &models.Tenant{
		Name:    strings.TrimSpace(req.Name),
		OwnerID: userCtx.UserID,
	}
	if err := tenant.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repos.Tenant.Create(tenant); err != nil {
		log.Printf("tenant create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create organization")
	}

	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// HandleTenantList returns all organizations the current user belongs to.
func HandleTenantList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	tenants, err := repos.Tenant.ListForUser(userCtx.UserID)
	if err != nil {
		log.Printf("tenant list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load organizations")
	}

	return c.JSON(fiber.Map{"tenants": tenants, "total": len(tenants)})
}

// HandleTenantInvite creates an email invitation into an organization. The
// invite row is kept even when the notification email fails.
func HandleTenantInvite(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	tenantID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid organization id")
	}

	tenant, err := repos.Tenant.GetByID(uint(tenantID))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
	}

	role, err := repos.Tenant.MemberRole(tenant.ID, userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
	}
	if role != models.TenantRoleOwner && role != models.TenantRoleAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only owners and admins can invite members")
	}

	var req tenantInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	// Member ceiling is checked against the owner's plan.
	owner, err := repos.User.GetSettings(tenant.OwnerID)
	if err != nil {
		log.Printf("owner settings lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not verify plan")
	}
	members, err := repos.Tenant.CountMembers(tenant.ID)
	if err != nil {
		log.Printf("member count failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not verify plan")
	}
	guard := newQuotaGuard(repos)
	if err := guard.CheckTeamSize(entitlements.NormalizePlan(owner.Plan), members); err != nil {
		return jsonError(c, fiber.StatusPaymentRequired, "plan_upgrade_required", err.Error())
	}

	invite, err := models.NewTenantInvite(tenant.ID, userCtx.UserID, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repos.Tenant.CreateInvite(invite); err != nil {
		log.Printf("invite create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not create invitation")
	}

	// Side channel: a failed email never rolls back the invite row.
	baseURL := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	subject := fmt.Sprintf("You have been invited to %s on DueDesk", tenant.Name)
	body := fmt.Sprintf(`<p>%s invited you to the organization <strong>%s</strong>.</p>
<p><a href="%s/invites/%s">Accept the invitation</a> (valid for 7 days).</p>`,
		userCtx.Username, tenant.Name, baseURL, invite.Token)
	if err := getInviteMailer().Send(invite.Email, subject, body); err != nil {
		log.Printf("invite email to %s failed: %v", invite.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(invite)
}

// HandleTenantInviteAccept redeems an invitation token for the current user.
func HandleTenantInviteAccept(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	invite, err := repos.Tenant.GetInviteByToken(c.Params("token"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Invitation not found")
		}
		log.Printf("invite lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load invitation")
	}

	if invite.IsExpired() {
		return jsonError(c, fiber.StatusGone, "expired", "Invitation has expired")
	}
	if invite.IsAccepted() {
		return jsonError(c, fiber.StatusConflict, "conflict", "Invitation was already accepted")
	}

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Unknown user")
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Invitation was issued for a different email address")
	}

	if member, err := repos.Tenant.IsMember(invite.TenantID, user.ID); err == nil && member {
		return jsonError(c, fiber.StatusConflict, "conflict", "Already a member of this organization")
	}

	if err := repos.Tenant.AddMember(&models.TenantMember{
		TenantID: invite.TenantID,
		UserID:   user.ID,
		Role:     models.TenantRoleMember,
	}); err != nil {
		log.Printf("member add failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not join organization")
	}

	if err := repos.Tenant.MarkInviteAccepted(invite.ID, time.Now()); err != nil {
		log.Printf("invite accept mark failed: %v", err)
	}

	return c.JSON(fiber.Map{"success": true, "tenant_id": invite.TenantID})
}
