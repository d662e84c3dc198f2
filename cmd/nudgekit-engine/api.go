// Package main provides the nudgekit engine server: event ingestion, the
// per-event execution engine, and the analytics read API.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/nudgekit/nudgekit/pkg/analytics"
	"github.com/nudgekit/nudgekit/pkg/dispatch"
	"github.com/nudgekit/nudgekit/pkg/engine"
	"github.com/nudgekit/nudgekit/pkg/eventbus"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/quota"
	"github.com/nudgekit/nudgekit/pkg/registry"
	"github.com/nudgekit/nudgekit/pkg/services"
	"github.com/nudgekit/nudgekit/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	executor := dispatch.NewExecutor(
		a.persistence.WorkflowRepository(),
		a.persistence.ExecutionEventRepository(),
		a.registry,
		a.logger,
	)
	dispatcher := dispatch.NewDispatcher(a.eventBus, executor, a.logger)
	gate := quota.NewGate(a.persistence.SubscriptionRepository(), a.logger)
	eng := engine.New(a.persistence, gate, dispatcher, a.logger)

	aggregator := analytics.NewAggregator(
		a.persistence.WorkflowRepository(),
		a.persistence.ExecutionEventRepository(),
		a.logger,
	)

	trackService := services.NewTrack(eng)
	visitorService := services.NewVisitor(a.persistence.VisitorTagRepository())

	handlers := web.NewAPIHandlers(trackService, visitorService, aggregator, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Nudgekit Engine")
	})

	v1 := app.Group("/v1")

	v1.Post("/track", handlers.Track)
	v1.Post("/track/batch", handlers.TrackBatch)

	visitor := v1.Group("/visitor/:siteId/:visitorId")
	visitor.Get("/tags", handlers.GetTags)
	visitor.Post("/tags", handlers.AddTag)
	visitor.Delete("/tags/:tag", handlers.RemoveTag)
	visitor.Get("/has-tag", handlers.HasTag)

	workflowAnalytics := v1.Group("/analytics/workflows/:id")
	workflowAnalytics.Get("/funnel", handlers.GetFunnel)
	workflowAnalytics.Get("/summary", handlers.GetSummary)
	workflowAnalytics.Get("/activity", handlers.GetActivity)
	workflowAnalytics.Get("/nodes", handlers.GetNodePerformance)
	workflowAnalytics.Get("/types", handlers.GetTypeBreakdown)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
