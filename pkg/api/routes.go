package api

import (
	fiberws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RegisterControlRoutes mounts the control websocket at /ws/control.
func RegisterControlRoutes(router fiber.Router, h *ControlWebSocketHandler) {
	ws := router.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/control", fiberws.New(h.Handle))

	h.logger.Infof("Registered control websocket at /ws/control")
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
