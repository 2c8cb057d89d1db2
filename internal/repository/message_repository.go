package repository

import (
	"context"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// MessageRepository manages conversation turns.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListRecent(ctx context.Context, projectID int64, limit int) ([]domain.Message, error)
}

type messageRepository struct {
	db DBTX
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (project_id, role, content)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, msg.ProjectID, string(msg.Role), msg.Content).Scan(&msg.ID, &msg.CreatedAt)
}

// ListRecent returns the newest limit turns in chronological order.
func (r *messageRepository) ListRecent(ctx context.Context, projectID int64, limit int) ([]domain.Message, error) {
	const query = `
        SELECT id, project_id, role, content, created_at FROM (
            SELECT id, project_id, role, content, created_at
            FROM messages WHERE project_id=$1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Message, 0, limit)
	for rows.Next() {
		var (
			msg  domain.Message
			role string
		)
		if err := rows.Scan(&msg.ID, &msg.ProjectID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		result = append(result, msg)
	}
	return result, rows.Err()
}
