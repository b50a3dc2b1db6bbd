package routes

import (
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/nadigross/userbase/internal/config"
	"github.com/nadigross/userbase/internal/handlers"
	"github.com/nadigross/userbase/internal/middleware"
)

// NewApp builds the Fiber app with the global middleware stack.
func NewApp(cfg *config.Config, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "userbase",
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// log records outlive the request; ctx values must not alias fasthttp buffers
		Immutable:    true,
		ErrorHandler: middleware.ErrorHandler(log, cfg.IsProduction()),
	})

	if cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	return app
}

func Setup(app *fiber.App, userHandler *handlers.UserHandler, healthHandler *handlers.HealthHandler) {
	app.Get("/health", healthHandler.Check)

	v1 := app.Group("/v1")

	users := v1.Group("/users")
	users.Post("/login", userHandler.Login)
	users.Post("/signup", userHandler.Signup)
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Put("/:id", userHandler.Update)
	users.Delete("/:id", userHandler.Delete)
}
