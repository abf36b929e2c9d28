package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/municipal-it/helpdesk/internal/api/http/handlers"
	"github.com/municipal-it/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	Directory      *handlers.DirectoryHandler
	Dashboard      *handlers.DashboardHandler
	Photos         *handlers.PhotosHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	authenticated := app.Group("", cfg.AuthMiddleware.Handle)
	authenticated.Post("/auth/password/change", cfg.Auth.ChangePassword)

	api := authenticated.Group("", auth.RequirePasswordCurrent())
	api.Get("/dashboard/me", cfg.Dashboard.Requester)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", cfg.Tickets.SubmitTicket)
	api.Post("/tickets/:id/reopen", cfg.Tickets.ReopenTicket)
	api.Get("/photos/:ref", cfg.Photos.Get)
	api.Get("/catalog/statuses", cfg.Admin.ListStatuses)
	api.Get("/catalog/problem-types", cfg.Admin.ListProblemTypes)

	requireAdmin := auth.RequireAdmin()

	directory := api.Group("/directory")
	directory.Get("/municipalities", cfg.Directory.Municipalities)
	directory.Get("/devices", cfg.Directory.Devices)
	directory.Get("/devices/:serial", cfg.Directory.Device)
	directory.Get("/responsible", requireAdmin, cfg.Directory.Responsible)

	api.Post("/tickets/:id/capture", requireAdmin, cfg.Tickets.CaptureTicket)
	api.Post("/tickets/:id/update", requireAdmin, cfg.Tickets.UpdateTicket)
	api.Get("/dashboard", requireAdmin, cfg.Dashboard.Admin)

	admin := api.Group("/admin", requireAdmin)
	admin.Get("/statuses", cfg.Admin.ListStatuses)
	admin.Post("/statuses", cfg.Admin.AddStatus)
	admin.Put("/statuses", cfg.Admin.UpdateStatuses)
	admin.Delete("/statuses/:id", cfg.Admin.DeleteStatus)
	admin.Get("/problem-types", cfg.Admin.ListProblemTypes)
	admin.Post("/problem-types", cfg.Admin.AddProblemType)
	admin.Put("/problem-types", cfg.Admin.RenameProblemTypes)
	admin.Delete("/problem-types/:id", cfg.Admin.DeleteProblemType)
	admin.Get("/settings", cfg.Admin.GetSettings)
	admin.Put("/settings", cfg.Admin.SaveSettings)

	admin.Get("/users", cfg.Users.List)
	admin.Post("/users", cfg.Users.Create)
	admin.Put("/users/:id", cfg.Users.Update)
	admin.Delete("/users/:id", cfg.Users.Delete)
	admin.Post("/users/:id/reset-password", cfg.Users.ResetPassword)
}
