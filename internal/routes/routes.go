package routes

import (
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/config"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Report *handlers.ReportHandler
	Asset  *handlers.AssetHandler
	Events *handlers.EventsHandler
	Health *handlers.HealthHandler
	// Auth is nil when no database is configured; tokens must then be
	// issued elsewhere with the same JWT_SECRET.
	Auth *handlers.AuthHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP. Sync clients refetch on
	// every notification, so this is looser than the auth limit. The event
	// stream is one long-lived request and is not counted.
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/events") || strings.HasPrefix(c.Path(), "/api/assets/")
		},
	}))

	api.Get("/health", h.Health.Check)

	if h.Auth != nil {
		// Auth-specific rate limit: 10 req/min per IP (stricter)
		auth := api.Group("/auth")
		auth.Use(limiter.New(limiter.Config{
			Max:               10,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}))
		auth.Post("/register", h.Auth.Register)
		auth.Post("/login", h.Auth.Login)
		auth.Post("/refresh", h.Auth.Refresh)

		api.Post("/auth/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
		api.Delete("/auth/account", middleware.JWTProtected(cfg), middleware.ResolveActor(cfg), h.Auth.DeleteAccount)
	}

	optional := []fiber.Handler{middleware.OptionalJWT(cfg), middleware.ResolveActor(cfg)}
	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.ResolveActor(cfg)}

	reports := api.Group("/reports")
	// Reads of the list are public; /stats must be registered before /:id.
	reports.Get("/", append(optional, h.Report.List)...)
	reports.Get("/stats", append(optional, h.Report.Stats)...)
	reports.Get("/:id", append(protected, h.Report.Get)...)
	reports.Post("/", append(protected, h.Report.Create)...)
	reports.Patch("/:id", append(protected, h.Report.Update)...)
	reports.Patch("/:id/status", append(protected, middleware.AdminRequired(), h.Report.UpdateStatus)...)
	reports.Delete("/:id", append(protected, h.Report.Delete)...)

	api.Get("/assets/:key", h.Asset.Serve)

	api.Use("/events", h.Events.Upgrade)
	api.Get("/events", h.Events.Stream())
}
