package di

import (
	"context"
	"time"

	"restate/internal/shared/metrics"
	"restate/internal/shared/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const healthCheckTimeout = 5 * time.Second

// NewApp builds the HTTP gateway over the initialized modules.
func (c *Container) NewApp() *fiber.App {
	log := c.Logger.WithComponent("http")

	app := fiber.New(fiber.Config{
		AppName:      "Restate Gateway v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Errorf("HTTP Error: %v", err)
			}
			return ctx.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.UserContext())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS("*"))

	app.Get("/health", func(ctx *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(ctx.UserContext(), healthCheckTimeout)
		defer cancel()

		if err := c.HealthCheck(healthCtx); err != nil {
			log.Errorf("Health check failed: %v", err)
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"message": "Backend is unreachable",
			})
		}

		return ctx.JSON(fiber.Map{
			"status":    "HEALTHY",
			"message":   "Restate gateway is running",
			"driver":    c.Config.Backend.Driver,
			"timestamp": time.Now().UTC(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	authModule := c.GetAuthModule()
	propertyModule := c.GetPropertyModule()

	api := app.Group("/api/v1")
	if authModule != nil {
		api.Use(authModule.GetMiddleware())
		authModule.RegisterRoutes(api)
		authModule.RegisterWebSocket(app)
	}
	if propertyModule != nil {
		propertyModule.RegisterRoutes(api)
	}

	return app
}
