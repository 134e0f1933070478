package handlers

import (
	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gofiber/fiber/v2"
)

// MessagesHandler is the background side of the cross-context message
// contract. Failures travel inside the response body.
type MessagesHandler struct {
	background messaging.Handler
}

func NewMessagesHandler(background messaging.Handler) *MessagesHandler {
	return &MessagesHandler{background: background}
}

func (h *MessagesHandler) Post(c *fiber.Ctx) error {
	var req messaging.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	return c.JSON(h.background.Handle(c.UserContext(), req))
}
