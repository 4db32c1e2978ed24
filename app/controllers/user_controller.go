package controllers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/app/repository"
	"github.com/duedesk/DueDesk/internal/pkg/database"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
	"github.com/duedesk/DueDesk/internal/pkg/usercontext"
	"github.com/duedesk/DueDesk/internal/pkg/utils"
)

type userSettingsRequest struct {
	EmailReminders *bool   `json:"email_reminders"`
	Timezone       *string `json:"timezone"`
}

// HandleGetUserAccount returns account information for the authenticated user.
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Unknown user")
	}
	settings, err := repos.User.GetSettings(user.ID)
	if err != nil {
		log.Printf("settings lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load settings")
	}

	plan := entitlements.NormalizePlan(settings.Plan)
	return c.JSON(fiber.Map{
		"user":       user,
		"avatar_url": utils.GetGravatarURL(user.Email, 200),
		"settings":   settings,
		"plan":       plan,
		"limits":     entitlements.LimitsFor(plan),
	})
}

// HandleUpdateUserSettings updates notification preferences.
func HandleUpdateUserSettings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req userSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		log.Printf("settings lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load settings")
	}

	if req.EmailReminders != nil {
		settings.EmailReminders = *req.EmailReminders
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown timezone")
		}
		settings.Timezone = tz
	}

	if err := db.Save(settings).Error; err != nil {
		log.Printf("settings save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not save settings")
	}

	return c.JSON(settings)
}

// HandleIssueAPIKey issues a fresh API key, replacing any previous one. The
// raw key is only returned once.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		log.Printf("settings lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load settings")
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		log.Printf("api key issue failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not issue API key")
	}
	if err := db.Save(settings).Error; err != nil {
		log.Printf("api key save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not issue API key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    rawKey,
		"key_prefix": settings.APIKeyPrefix,
		"created_at": settings.APIKeyCreatedAt,
	})
}

// HandleRevokeAPIKey revokes the active API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	db := database.GetDB()
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		log.Printf("settings lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load settings")
	}
	if !settings.HasActiveAPIKey() {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No active API key")
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		log.Printf("api key revoke failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not revoke API key")
	}

	return c.JSON(fiber.Map{"success": true})
}
