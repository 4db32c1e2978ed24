package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/duedesk/DueDesk/app/repository"
	"github.com/duedesk/DueDesk/internal/pkg/archive"
	"github.com/duedesk/DueDesk/internal/pkg/cache"
	"github.com/duedesk/DueDesk/internal/pkg/constants"
	"github.com/duedesk/DueDesk/internal/pkg/database"
	"github.com/duedesk/DueDesk/internal/pkg/env"
	"github.com/duedesk/DueDesk/internal/pkg/health"
	"github.com/duedesk/DueDesk/internal/pkg/mail"
	"github.com/duedesk/DueDesk/internal/pkg/metrics/counter"
	"github.com/duedesk/DueDesk/internal/pkg/reminder"
	"github.com/duedesk/DueDesk/internal/pkg/router"
	"github.com/duedesk/DueDesk/internal/pkg/scheduler"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	startScheduler()
	health.StartMonitor()

	app := fiber.New(fiber.Config{
		AppName: "DueDesk",
	})
	app.Use(recover.New(), logger.New())
	app.Get(constants.MetricsRoute, monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startScheduler wires the reminder dispatcher and renewal sweep into the
// background manager.
func startScheduler() {
	repos := repository.GetGlobalRepositories()
	dispatcher := reminder.NewDispatcher(repos.Deadline, repos.User, repos.ReminderLog, mail.NewSMTPMailerFromEnv())
	renewer := reminder.NewRenewer(repos.Deadline)
	reminder.SetSentCounter(counter.AddReminderSent)

	manager := scheduler.GetManager()
	manager.Configure(dispatcher, renewer)

	if cfg, err := archive.LoadConfig(); err != nil {
		log.Printf("audit archive config invalid: %v", err)
	} else if cfg.IsEnabled() {
		if client, err := archive.NewClient(cfg); err != nil {
			log.Printf("audit archive disabled: %v", err)
		} else {
			manager.ConfigureArchive(archive.NewExporter(repos.ReminderLog, client, cfg))
		}
	}

	manager.Start()
}
