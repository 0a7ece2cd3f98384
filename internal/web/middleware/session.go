package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
)

// LocalSession is the fiber.Ctx locals key holding the request's session.
const LocalSession = "session"

// LoadSession resolves the session cookie, creating a fresh anonymous
// session when the cookie is missing or invalid, and stores the session in
// the request locals.
func LoadSession(manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := manager.Parse(c.Cookies(session.CookieName))
		if sess == nil {
			var cookieValue string
			sess, cookieValue = manager.Create()
			c.Cookie(&fiber.Cookie{
				Name:     session.CookieName,
				Value:    cookieValue,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				MaxAge:   int(manager.TTL().Seconds()),
			})
		}

		c.Locals(LocalSession, sess)
		return c.Next()
	}
}

// SessionFromCtx returns the session placed by LoadSession, or nil.
func SessionFromCtx(c *fiber.Ctx) *session.Session {
	sess, ok := c.Locals(LocalSession).(*session.Session)
	if !ok {
		return nil
	}
	return sess
}
