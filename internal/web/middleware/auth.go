package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireLogin gates a route group behind authentication. Browsers are
// redirected to the login page instead of receiving a bare 401.
func RequireLogin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFromCtx(c)
		if sess == nil || !sess.IsLoggedIn() {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
