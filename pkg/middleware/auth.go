package middleware

import (
	"strings"

	"airline/pkg/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Keys under which the authenticated caller is stored in c.Locals.
const (
	LocalUsername = "username"
	LocalRole     = "role"
)

// TokenParser turns a bearer token into the caller it was issued to.
type TokenParser interface {
	ParseToken(tokenStr string) (models.User, error)
}

func bearer(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return auth[7:]
}

func setUser(c *fiber.Ctx, user models.User) {
	c.Locals(LocalUsername, user.Username)
	c.Locals(LocalRole, user.Role)
}

// CurrentUser returns the caller stored by Auth or WSToken.
func CurrentUser(c *fiber.Ctx) models.User {
	username, _ := c.Locals(LocalUsername).(string)
	role, _ := c.Locals(LocalRole).(string)
	return models.User{Username: username, Role: role}
}

func Auth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearer(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}
		user, err := parser.ParseToken(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		setUser(c, user)
		return c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !models.CanAct(CurrentUser(c).Role, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}

// WSToken authenticates a websocket upgrade. Browsers cannot set headers on
// the handshake, so the token may also come from the "token" query param.
func WSToken(parser TokenParser, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearer(c)
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		user, err := parser.ParseToken(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		if !models.CanAct(user.Role, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		setUser(c, user)
		return c.Next()
	}
}
