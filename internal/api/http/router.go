package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Auth            *handlers.AuthHandler
	Users           *handlers.UsersHandler
	Categories      *handlers.CategoriesHandler
	Tickets         *handlers.TicketsHandler
	ServiceRequests *handlers.ServiceRequestsHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Fixed segments such as /my are
// registered before /:id so they are not captured as identifiers.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	authenticated := cfg.AuthMiddleware.Handle
	agent := auth.RequireRole(domain.RoleAgent)
	admin := auth.RequireRole(domain.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/forgot", cfg.Auth.ForgotPassword)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)
	authGroup.Patch("/me", authenticated, cfg.Auth.UpdateMe)
	authGroup.Post("/password", authenticated, cfg.Auth.ChangePassword)

	users := api.Group("/users", authenticated)
	users.Get("/agents", agent, cfg.Users.Agents)
	users.Get("/", admin, cfg.Users.List)
	users.Post("/", admin, cfg.Users.Create)
	users.Get("/:id", admin, cfg.Users.Get)
	users.Patch("/:id", admin, cfg.Users.Update)
	users.Patch("/:id/activate", admin, cfg.Users.Activate)
	users.Patch("/:id/deactivate", admin, cfg.Users.Deactivate)

	categories := api.Group("/categories", authenticated)
	categories.Get("/", cfg.Categories.List)
	categories.Get("/:id", cfg.Categories.Get)
	categories.Post("/", admin, cfg.Categories.Create)
	categories.Patch("/:id", admin, cfg.Categories.Update)
	categories.Delete("/:id", admin, cfg.Categories.Delete)
	categories.Post("/:id/subcategories", admin, cfg.Categories.AddSubcategory)
	categories.Delete("/:id/subcategories/:name", admin, cfg.Categories.RemoveSubcategory)

	tickets := api.Group("/tickets", authenticated)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", admin, cfg.Tickets.ListAll)
	tickets.Get("/my", cfg.Tickets.ListMine)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/assigned", agent, cfg.Tickets.ListAssigned)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Patch("/:id/assign", agent, cfg.Tickets.Assign)
	tickets.Patch("/:id/resolve", cfg.Tickets.Resolve)

	requests := api.Group("/service-requests", authenticated)
	requests.Post("/", cfg.ServiceRequests.Create)
	requests.Get("/", admin, cfg.ServiceRequests.ListAll)
	requests.Get("/my", cfg.ServiceRequests.ListMine)
	requests.Get("/stats", cfg.ServiceRequests.Stats)
	requests.Get("/assigned", agent, cfg.ServiceRequests.ListAssigned)
	requests.Get("/:id", cfg.ServiceRequests.Get)
	requests.Patch("/:id", cfg.ServiceRequests.Update)
	requests.Post("/:id/comments", cfg.ServiceRequests.AddComment)
	requests.Patch("/:id/assign", agent, cfg.ServiceRequests.Assign)
	requests.Patch("/:id/approve", agent, cfg.ServiceRequests.Approve)
	requests.Patch("/:id/reject", agent, cfg.ServiceRequests.Reject)
}
