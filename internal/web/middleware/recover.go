package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
				)

				_ = c.Status(fiber.StatusInternalServerError).Render("error", fiber.Map{
					"Title":   "Error",
					"Message": "An unexpected error occurred",
				}, "layouts/auth")
			}
		}()
		return c.Next()
	}
}
