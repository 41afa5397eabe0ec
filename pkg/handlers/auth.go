package handlers

import (
	"errors"
	"time"

	"airline/pkg/logger"
	"airline/pkg/middleware"
	"airline/pkg/models"
	"airline/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type AuthHandler struct {
	svc services.AuthService
	log *logger.Logger
}

func NewAuth(svc services.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log.Named("http")}
}

func (h *AuthHandler) Register(r fiber.Router) {
	group := r.Group("/auth")
	group.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), h.Login)
	group.Get("/me", middleware.Auth(h.svc), h.Me)
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, msgMalformedBody)
	}

	resp, err := h.svc.Login(req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.log.Error("login failed", logger.String("username", req.Username), logger.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	h.log.Info("operator logged in", logger.String("username", resp.User.Username), logger.String("role", resp.User.Role))
	return c.JSON(resp)
}

// GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}
