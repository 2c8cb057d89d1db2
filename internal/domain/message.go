package domain

import "time"

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Normalize maps unknown or empty roles to RoleUser.
func (r Role) Normalize() Role {
	switch r {
	case RoleAssistant:
		return RoleAssistant
	default:
		return RoleUser
	}
}

// Message is one persisted conversation turn within a project.
type Message struct {
	ID        int64
	ProjectID int64
	Role      Role
	Content   string
	CreatedAt time.Time
}
