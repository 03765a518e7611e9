package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	Pages          *handlers.PagesHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           *auth.Gate
	RateLimiter    *IPRateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", throttle(cfg.RateLimiter, cfg.Auth.Login)...)
	authGroup.Post("/register", throttle(cfg.RateLimiter, cfg.Auth.Register)...)
	authGroup.Get("/verify", cfg.Auth.Verify)
	authGroup.Post("/logout", cfg.Auth.Logout)

	user := app.Group("/user", cfg.AuthMiddleware.Handle)
	user.Get("/profile", cfg.Profile.Get)
	user.Patch("/profile", cfg.Profile.Update)
	user.Post("/profile/image", cfg.Profile.UploadImage)
	user.Delete("/profile/image", cfg.Profile.RemoveImage)

	// Pages are gated per route so the cookie gate never wraps API routes.
	public := map[string]string{
		"/":                   "home",
		"/products":           "products",
		auth.LoginPath:        "login",
		auth.RegisterPath:     "register",
		auth.UnauthorizedPath: "unauthorized",
	}
	for path, name := range public {
		app.Get(path, cfg.Gate.Handle, cfg.Pages.Page(name))
	}
	for _, rule := range auth.RouteTable() {
		app.Get(rule.Prefix, cfg.Gate.Handle, cfg.Pages.Page(strings.TrimPrefix(rule.Prefix, "/")))
	}
}

func throttle(limiter *IPRateLimiter, h fiber.Handler) []fiber.Handler {
	if limiter == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{limiter.Handle, h}
}
