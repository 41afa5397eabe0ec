package handlers

import (
	"airline/pkg/hub"
	"airline/pkg/middleware"
	"airline/pkg/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RegisterFeed mounts the flight websocket feed. Clients pass their token
// as ?token= since browsers cannot set headers on the upgrade.
func RegisterFeed(r fiber.Router, h *hub.Hub, parser middleware.TokenParser) {
	r.Use("/ws/flights", middleware.WSToken(parser, models.RoleAgent))
	r.Get("/ws/flights", websocket.New(func(c *websocket.Conn) {
		username, _ := c.Locals(middleware.LocalUsername).(string)
		role, _ := c.Locals(middleware.LocalRole).(string)
		h.HandleClientConn(c, username, role)
	}))
}
