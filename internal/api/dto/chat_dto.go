package dto

import (
	"time"

	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/service"
)

// ChatRequest carries one user message.
type ChatRequest struct {
	Message string `json:"message" form:"message"`
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatResponse reports both persisted turns. Failed marks a fallback reply.
type ChatResponse struct {
	UserMessage      MessageResponse `json:"user_message"`
	AssistantMessage MessageResponse `json:"assistant_message"`
	Response         string          `json:"response"`
	Failed           bool            `json:"failed"`
}

func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{ID: m.ID, Role: string(m.Role.Normalize()), Content: m.Content, Timestamp: m.CreatedAt}
}

func NewMessageList(messages []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, NewMessageResponse(&messages[i]))
	}
	return out
}

func NewChatResponse(turn *service.ChatTurn) ChatResponse {
	return ChatResponse{
		UserMessage:      NewMessageResponse(&turn.User),
		AssistantMessage: NewMessageResponse(&turn.Assistant),
		Response:         turn.Assistant.Content,
		Failed:           turn.Failed,
	}
}
