package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/api/http/handlers"
	"github.com/spec-kit/chat-platform/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Projects *handlers.ProjectsHandler
	Chat     *handlers.ChatHandler
	Files    *handlers.FilesHandler
	Sessions *auth.SessionResolver
	Metrics  fiber.Handler
}

// RegisterRoutes wires HTTP routes. Browser routes authenticate with the session cookie,
// /api routes with an Authorization header.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token", cfg.Auth.Token)
	authGroup.Get("/logout", cfg.Auth.Logout)
	authGroup.Post("/logout", cfg.Auth.Logout)
	app.Post("/token", cfg.Auth.Token)

	cookie := cfg.Sessions.Middleware(auth.CookieToken)
	authGroup.Get("/me", cookie, cfg.Auth.Me)

	projects := app.Group("/projects", cookie)
	projects.Get("/", cfg.Projects.List)
	projects.Post("/", cfg.Projects.Create)
	projects.Get("/:id", cfg.Projects.Get)
	projects.Patch("/:id", cfg.Projects.Rename)
	projects.Delete("/:id", cfg.Projects.Delete)

	projects.Get("/:id/prompts", cfg.Projects.ListPrompts)
	projects.Post("/:id/prompts", cfg.Projects.AddPrompt)
	projects.Delete("/:id/prompts/:promptID", cfg.Projects.DeletePrompt)

	projects.Get("/:id/chat", cfg.Chat.History)
	projects.Post("/:id/chat", cfg.Chat.Send)

	projects.Get("/:id/files", cfg.Files.List)
	projects.Post("/:id/files", cfg.Files.Upload)
	projects.Post("/:id/upload", cfg.Files.Upload)

	files := app.Group("/files", cookie)
	files.Get("/:id", cfg.Files.Download)
	files.Delete("/:id", cfg.Files.Delete)

	api := app.Group("/api", cfg.Sessions.Middleware(auth.HeaderToken))
	api.Get("/projects/:id/messages", cfg.Chat.History)
	api.Post("/projects/:id/chat", cfg.Chat.Send)
}
