package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Notifier       *handlers.Notifier
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	web := app.Group("", cfg.AuthMiddleware.Handle)

	anonymous := cfg.Notifier.AnonymousOnly()
	loginRequired := cfg.Notifier.Guard(auth.RequireLogin)
	agentRequired := cfg.Notifier.Guard(auth.RequireAgent)
	adminRequired := cfg.Notifier.Guard(auth.RequireAdmin)

	web.Get("/", cfg.Accounts.Home)
	web.Get("/home", cfg.Accounts.Home)
	web.Get("/register", anonymous, cfg.Accounts.RegisterForm)
	web.Post("/register", anonymous, cfg.Accounts.Register)
	web.Get("/login", anonymous, cfg.Accounts.LoginForm)
	web.Post("/login", anonymous, cfg.Accounts.Login)
	web.Get("/logout", loginRequired, cfg.Accounts.Logout)

	web.Get("/user_dashboard", loginRequired, cfg.Tickets.CustomerDashboard)
	web.Get("/submit_ticket", loginRequired, cfg.Tickets.SubmitForm)
	web.Post("/submit_ticket", loginRequired, cfg.Tickets.Submit)
	web.Get("/ticket/:id", loginRequired, cfg.Tickets.Detail)
	web.Post("/ticket/:id", loginRequired, cfg.Tickets.Respond)
	web.Post("/ticket/:id/assign", agentRequired, cfg.Tickets.Assign)
	web.Post("/ticket/:id/status", agentRequired, cfg.Tickets.ChangeStatus)
	web.Post("/ticket/:id/delete", adminRequired, cfg.Tickets.Delete)

	web.Get("/agent_dashboard", agentRequired, cfg.Tickets.AgentDashboard)
	web.Get("/admin_dashboard", adminRequired, cfg.Tickets.AdminDashboard)
	web.Get("/manage_users", adminRequired, cfg.Users.ManageUsers)
	web.Post("/user/:id/toggle_agent_status", adminRequired, cfg.Users.ToggleAgent)
	web.Post("/user/:id/toggle_admin_status", adminRequired, cfg.Users.ToggleAdmin)
}
