// Package main provides the webpilot API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/webpilot/webpilot/pkg/persistence"
	"github.com/webpilot/webpilot/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	runner      web.Runner
}

func NewAPI(logger *slog.Logger, persistence persistence.Persistence, runner web.Runner) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		runner:      runner,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.runner, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("webpilot API")
	})

	p := app.Group("/plans")
	p.Get("/", handlers.GetPlans)
	p.Post("/", handlers.CreatePlan)
	p.Get("/:id", handlers.GetPlan)
	p.Patch("/:id", handlers.UpdatePlan)
	p.Delete("/:id", handlers.DeletePlan)
	p.Post("/:id/run", handlers.RunPlan)
	p.Get("/:id/results", handlers.GetPlanResults)

	app.Get("/templates", handlers.GetTemplates)
	app.Post("/templates/:name", handlers.InstantiateTemplate)

	app.Get("/results", handlers.GetResults)
	app.Get("/results/:id", handlers.GetResult)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
