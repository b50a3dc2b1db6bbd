package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nadigross/userbase/internal/logging"
)

// RequestLogger logs every request before it is handled, then its outcome.
// Password fields in JSON bodies are redacted.
func RequestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)

		log.Info(c.Method()+" "+c.Path(),
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"body", logging.LoggableBody(c.Body()),
			"query", c.Queries(),
			"ip", c.IP(),
		)

		// run the error handler here so the logged status is the one sent
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.Log(c.UserContext(), level, "response",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds())/1000,
		)
		return nil
	}
}
