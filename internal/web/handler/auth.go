package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/middleware"
)

// AuthService interface for the service
type AuthService interface {
	SignUp(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
}

// AuthHandler handles the login and signup pages.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	if sess != nil && sess.IsLoggedIn() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	data := fiber.Map{"Title": "Login"}
	if c.Query("created") != "" {
		data["Success"] = "Account created successfully"
	}
	return c.Render("login", data, "layouts/auth")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	err := h.service.Login(c.UserContext(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
				"Title": "Login",
				"Error": "Invalid username or password",
			}, "layouts/auth")
		}
		return err
	}

	sess := middleware.SessionFromCtx(c)
	sess.Login(username)

	h.logger.Info("operator logged in", slog.String("username", username))

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *AuthHandler) SignupPage(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	if sess != nil && sess.IsLoggedIn() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	return c.Render("signup", fiber.Map{"Title": "Signup"}, "layouts/auth")
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	err := h.service.SignUp(c.UserContext(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).Render("signup", fiber.Map{
				"Title": "Signup",
				"Error": "Username already exists",
			}, "layouts/auth")
		case errors.Is(err, domain.ErrValidationFailed):
			return c.Status(fiber.StatusUnprocessableEntity).Render("signup", fiber.Map{
				"Title": "Signup",
				"Error": "Username and password are required",
			}, "layouts/auth")
		}
		return err
	}

	h.logger.Info("account created", slog.String("username", username))

	return c.Redirect("/login?created=1", fiber.StatusSeeOther)
}
