package middleware

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/nadigross/userbase/internal/dto"
	"github.com/nadigross/userbase/internal/validation"
)

// ErrorHandler is the catch-all for errors returned by handlers. Validation
// errors become 400 with field details, *fiber.Error keeps its code, and
// everything else is a logged 500 whose detail is only exposed outside
// production.
func ErrorHandler(log *slog.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Success: false,
				Message: "Validation failed",
				Errors:  verrs,
			})
		}

		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		resp := dto.ErrorResponse{Success: false, Message: message}

		// Only expose error details for client errors (4xx), not server errors (5xx)
		if code >= fiber.StatusInternalServerError {
			requestID, _ := c.Locals("requestid").(string)
			log.Error("unhandled server error",
				"request_id", requestID,
				"method", c.Method(),
				"path", c.Path(),
				"error", err.Error(),
			)
			if hub := sentryfiber.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
			resp.Message = "Internal server error"
			if !production {
				resp.Detail = err.Error()
			}
		}

		return c.Status(code).JSON(resp)
	}
}
