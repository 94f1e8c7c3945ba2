package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/clients/login", cfg.Auth.ClientLogin)
	authGroup.Post("/analysts/login", cfg.Auth.AnalystLogin)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireClient())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireEmployee())
	staff.Get("/tickets", cfg.StaffTickets.ListOpen)
	staff.Get("/tickets/mine", cfg.StaffTickets.ListMine)
	staff.Get("/tickets/:id", cfg.Tickets.GetTicket)
	staff.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)
	staff.Put("/tickets/:id", cfg.StaffTickets.UpdateTicket)
	staff.Get("/reports/status", cfg.StaffTickets.StatusReport)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Delete("/tickets/:id", cfg.Admin.DeleteTicket)
	admin.Get("/audit", cfg.Admin.ListAudit)
}
