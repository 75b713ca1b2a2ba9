package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Devices        *handlers.DevicesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authn := cfg.AuthMiddleware.Handle
	app.Get("/metrics", authn, auth.RequireRole(domain.RoleAdmin), cfg.Health.Metrics)
	app.Get("/dashboard", authn, auth.RequireRole(), cfg.Devices.Dashboard)

	devices := app.Group("/devices", authn, auth.RequireRole())
	devices.Post("", auth.RequireRole(domain.RoleCustomerCare, domain.RoleAdmin), cfg.Devices.RegisterDevice)
	devices.Get("", cfg.Devices.ListDevices)
	devices.Get("/:id", cfg.Devices.GetDevice)
	devices.Get("/:id/history", cfg.Devices.History)
	devices.Get("/:id/next-statuses", cfg.Devices.NextStatuses)
	devices.Post("/:id/transitions", cfg.Devices.SubmitTransition)
	devices.Post("/:id/recover", auth.RequireRole(domain.RoleAdmin), cfg.Devices.Recover)
}
