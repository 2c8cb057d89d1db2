package domain

import "time"

// Project groups prompts, conversation turns and files for one user.
type Project struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
}

// Prompt is a stored instruction; the oldest prompt of a project acts as its system instruction.
type Prompt struct {
	ID        int64
	ProjectID int64
	Text      string
	CreatedAt time.Time
}
