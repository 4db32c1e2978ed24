package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/duedesk/DueDesk/app/controllers"
	"github.com/duedesk/DueDesk/internal/pkg/constants"
	"github.com/duedesk/DueDesk/internal/pkg/health"
	"github.com/duedesk/DueDesk/internal/pkg/middleware"
	"github.com/duedesk/DueDesk/internal/pkg/oauth"
	"github.com/duedesk/DueDesk/internal/pkg/session"
	"github.com/duedesk/DueDesk/internal/pkg/statistics"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		components := health.Snapshot()
		status := "ok"
		for _, ch := range components {
			if !ch.Healthy {
				status = "degraded"
				break
			}
		}
		return c.JSON(fiber.Map{
			"status":     status,
			"components": components,
		})
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":         "DueDesk",
			"total_users":     statistics.GetTotalUsers(),
			"total_deadlines": statistics.GetTotalDeadlines(),
		})
	})

	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
