package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/duedesk/DueDesk/app/controllers"
	"github.com/duedesk/DueDesk/internal/pkg/middleware"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// RegisterHandlers attaches all v1 routes to the given group.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)

	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", controllers.HandleAuthLogout)

	// The webhook authenticates via signature, the dispatch route via a
	// shared cron secret. Neither goes through user auth.
	v1.Post("/billing/webhook", controllers.HandleBillingWebhook)
	v1.Post("/internal/reminders/dispatch", controllers.HandleReminderDispatch)
	v1.Get("/billing/plans", controllers.HandleBillingPlans)

	authed := v1.Group("", middleware.APIAuthMiddleware())
	authed.Get("/deadlines", controllers.HandleDeadlineList)
	authed.Post("/deadlines", controllers.HandleDeadlineCreate)
	authed.Get("/deadlines/stats", controllers.HandleDeadlineStats)
	authed.Get("/deadlines/:uuid", controllers.HandleDeadlineGet)
	authed.Put("/deadlines/:uuid", controllers.HandleDeadlineUpdate)
	authed.Delete("/deadlines/:uuid", controllers.HandleDeadlineDelete)

	authed.Post("/tenants", controllers.HandleTenantCreate)
	authed.Get("/tenants", controllers.HandleTenantList)
	authed.Post("/tenants/:id/invites", controllers.HandleTenantInvite)
	authed.Post("/tenants/invites/:token/accept", controllers.HandleTenantInviteAccept)

	authed.Post("/billing/checkout-session", controllers.HandleBillingCheckout)
	authed.Get("/billing/subscription", controllers.HandleBillingSubscription)

	authed.Get("/user/profile", controllers.HandleGetUserAccount)
	authed.Post("/user/api-key", controllers.HandleIssueAPIKey)
	authed.Delete("/user/api-key", controllers.HandleRevokeAPIKey)
	authed.Put("/user/settings", controllers.HandleUpdateUserSettings)
}
