package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// ErrorHandler renders errors as HTML pages. Domain errors keep their status
// and message; anything unknown becomes a logged 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).Render("error", fiber.Map{
				"Title":   "Error",
				"Message": fiberErr.Message,
			}, "layouts/auth")
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
				)
			}

			return c.Status(appErr.StatusCode).Render("error", fiber.Map{
				"Title":   "Error",
				"Message": appErr.Message,
			}, "layouts/auth")
		}

		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)

		return c.Status(fiber.StatusInternalServerError).Render("error", fiber.Map{
			"Title":   "Error",
			"Message": "An unexpected error occurred",
		}, "layouts/auth")
	}
}
