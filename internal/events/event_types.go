package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventChatTurnCompleted EventType = "chat_turn_completed"
	EventCompletionFailed  EventType = "completion_failed"
)

// Event represents an audit event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id,omitempty"`
	ProjectID int64       `json:"project_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginPayload describes a login attempt. Email is recorded as typed; IPHash never holds the raw address.
type LoginPayload struct {
	Email   string `json:"email"`
	IPHash  string `json:"ip_hash"`
	Blocked bool   `json:"blocked,omitempty"`
}

// ChatTurnPayload describes one persisted exchange.
type ChatTurnPayload struct {
	UserMessageID      int64 `json:"user_message_id"`
	AssistantMessageID int64 `json:"assistant_message_id"`
	ContextSize        int   `json:"context_size"`
	LatencyMillis      int64 `json:"latency_ms"`
}

// CompletionFailedPayload describes a gateway failure that was answered with fallback text.
type CompletionFailedPayload struct {
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}
