package handlers

import (
	"errors"
	"os"
	"time"

	"github.com/aptify/chat-backend/internal/httpx"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/aptify/chat-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

func cookieSecure() bool {
	return os.Getenv("COOKIE_SECURE") != "false"
}

func setAuthCookies(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "aptify_access",
		Value:    token,
		HTTPOnly: true,
		Secure:   cookieSecure(),
		SameSite: "Lax",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
	})
	// Double-submit token; readable by the client so it can echo it in
	// the X-Aptify-CSRF header.
	c.Cookie(&fiber.Cookie{
		Name:     "aptify_csrf",
		Value:    uuid.NewString(),
		HTTPOnly: false,
		Secure:   cookieSecure(),
		SameSite: "Lax",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input service.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if !validation.ValidateEmail(input.Email) {
		return httpx.BadRequest(c, "invalid_email", "Valid email is required")
	}
	if !validation.ValidateUsername(input.Username) {
		return httpx.BadRequest(c, "invalid_username", "Username must be 3-32 chars (letters, digits, underscore)")
	}
	if !validation.ValidatePassword(input.Password) {
		return httpx.BadRequest(c, "weak_password", "Password is too short")
	}

	result, err := h.authService.Register(input)
	if err != nil {
		return httpx.BadRequest(c, "registration_failed", err.Error())
	}

	setAuthCookies(c, result.Token)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.Email == "" || input.Password == "" {
		return httpx.BadRequest(c, "missing_credentials", "Email and password are required")
	}

	result, err := h.authService.Login(input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return httpx.Unauthorized(c, "invalid_credentials", "Invalid credentials")
		}
		return httpx.Internal(c, "login_failed")
	}

	setAuthCookies(c, result.Token)
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	for _, name := range []string{"aptify_access", "aptify_csrf"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			HTTPOnly: name == "aptify_access",
			Secure:   cookieSecure(),
			SameSite: "Lax",
			Expires:  time.Now().Add(-time.Hour),
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// CSRF mints a fresh double-submit token for clients that lost theirs.
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	token := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     "aptify_csrf",
		Value:    token,
		HTTPOnly: false,
		Secure:   cookieSecure(),
		SameSite: "Lax",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
	})
	return c.JSON(fiber.Map{"csrf": token})
}

func (h *AuthHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		return httpx.NotFound(c, "user_not_found", "User not found")
	}
	return c.JSON(user.ToResponse())
}
