package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/api/dto"
	"github.com/spec-kit/chat-platform/internal/service"
)

// ChatHandler serves conversation turns for both the cookie and header flows.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send POST /projects/:id/chat and /api/projects/:id/chat.
// A failed completion still answers 200; the reply then carries the fallback notice.
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	turn, err := h.chat.SendMessage(c.UserContext(), user.ID, projectID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChatResponse(turn)})
}

// History GET /projects/:id/chat and /api/projects/:id/messages.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id", "project")
	if err != nil {
		return err
	}
	messages, err := h.chat.History(c.UserContext(), user.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMessageList(messages)})
}
