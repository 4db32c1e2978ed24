package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/billing"
	"github.com/duedesk/DueDesk/internal/pkg/database"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
	"github.com/duedesk/DueDesk/internal/pkg/env"
	"github.com/duedesk/DueDesk/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PriceKey   string `json:"price_key"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func billingService() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB())
}

// HandleBillingWebhook ingests provider events. The signature is verified
// against the raw body before anything is parsed; replayed events are
// acknowledged without reprocessing.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Print("billing webhook rejected: STRIPE_WEBHOOK_SECRET is not configured")
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "Webhook endpoint is not configured")
	}
	if !billing.VerifyWebhookSignature(payload, c.Get("Stripe-Signature"), secret, time.Now()) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	event, err := billing.ParseWebhookEvent(payload)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Malformed event payload")
	}

	svc := billingService()
	ctx := c.UserContext()

	created, record, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Printf("webhook event record failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not record event")
	}
	if !created {
		// Replay of an already-ingested event id.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	processErr := svc.ProcessEvent(ctx, event, payload)
	if processErr != nil && !errors.Is(processErr, billing.ErrEventIgnored) {
		if err := svc.MarkWebhookProcessed(ctx, record.ID, processErr); err != nil {
			log.Printf("webhook event mark failed: %v", err)
		}
		log.Printf("webhook event %s (%s) failed: %v", event.ID, event.Type, processErr)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Event processing failed")
	}

	if err := svc.MarkWebhookProcessed(ctx, record.ID, nil); err != nil {
		log.Printf("webhook event mark failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"received": true,
		"ignored":  errors.Is(processErr, billing.ErrEventIgnored),
	})
}

// HandleBillingCheckout starts a hosted checkout session for a plan.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	url, err := billingService().CreateCheckout(c.UserContext(), billing.CheckoutInput{
		UserID:     userCtx.UserID,
		UserEmail:  userCtx.Email,
		PriceKey:   req.PriceKey,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPriceKey) {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Unknown price key")
		}
		log.Printf("checkout session failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "upstream_error", "Could not start checkout")
	}

	return c.JSON(fiber.Map{"checkout_url": url})
}

// HandleBillingSubscription returns the user's subscriptions and effective plan.
func HandleBillingSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	subs, err := billing.NewRepository(database.GetDB()).ListSubscriptionsByUser(userCtx.UserID)
	if err != nil {
		log.Printf("subscription list failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Could not load subscriptions")
	}

	plan := entitlements.NormalizePlan(userCtx.Plan)
	return c.JSON(fiber.Map{
		"plan":          plan,
		"limits":        entitlements.LimitsFor(plan),
		"subscriptions": subs,
	})
}

// HandleBillingPlans lists the purchasable plans and their entitlements.
func HandleBillingPlans(c *fiber.Ctx) error {
	plans := []fiber.Map{}
	for _, plan := range []entitlements.Plan{
		entitlements.PlanFree,
		entitlements.PlanPro,
		entitlements.PlanTeam,
		entitlements.PlanEnterprise,
	} {
		plans = append(plans, fiber.Map{
			"plan":   plan,
			"limits": entitlements.LimitsFor(plan),
		})
	}
	return c.JSON(fiber.Map{
		"plans":      plans,
		"price_keys": billing.PriceKeys(),
	})
}
