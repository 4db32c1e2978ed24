package controllers

import (
	"crypto/subtle"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/duedesk/DueDesk/internal/pkg/env"
	"github.com/duedesk/DueDesk/internal/pkg/scheduler"
)

// HandleReminderDispatch runs one reminder dispatch pass plus the auto-renew
// sweep. The route is meant for an external cron caller and is guarded by a
// shared secret header instead of user auth.
func HandleReminderDispatch(c *fiber.Ctx) error {
	secret := env.GetEnv("CRON_SECRET", "")
	if secret == "" {
		log.Print("reminder dispatch rejected: CRON_SECRET is not configured")
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "Dispatch endpoint is not configured")
	}
	provided := c.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid cron secret")
	}

	manager := scheduler.GetManager()
	result, err := manager.RunDispatchOnce(c.UserContext())
	if err != nil {
		log.Printf("reminder dispatch failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Dispatch failed")
	}

	renewals, err := manager.RunRenewalOnce(c.UserContext())
	if err != nil {
		log.Printf("auto-renew sweep failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"message":          fmt.Sprintf("Dispatched %d reminder(s), %d renewal(s) created", result.Sent, renewals),
		"remindersSent":    result.Sent,
		"remindersSkipped": result.Skipped,
		"totalDeadlines":   result.Total,
		"renewalsCreated":  renewals,
	})
}
