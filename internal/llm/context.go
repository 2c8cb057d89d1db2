// Package llm assembles conversation context and talks to the chat-completion endpoint.
package llm

import (
	"strings"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// HistoryWindow is the number of prior turns sent with each completion.
const HistoryWindow = 10

// Role is the speaker of a context entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the context window sent upstream.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BuildContext returns [system?] + the last HistoryWindow turns of history + the new user message.
// history must be in chronological order. Turns with an unknown role are sent as user turns.
func BuildContext(system string, history []domain.Message, userMessage string) []Message {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	out := make([]Message, 0, len(history)+2)
	if strings.TrimSpace(system) != "" {
		out = append(out, Message{Role: RoleSystem, Content: system})
	}
	for _, turn := range history {
		out = append(out, Message{Role: fromDomain(turn.Role), Content: turn.Content})
	}
	return append(out, Message{Role: RoleUser, Content: userMessage})
}

func fromDomain(r domain.Role) Role {
	if r.Normalize() == domain.RoleAssistant {
		return RoleAssistant
	}
	return RoleUser
}
