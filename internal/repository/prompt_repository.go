package repository

import (
	"context"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// PromptRepository manages project prompts.
type PromptRepository interface {
	Create(ctx context.Context, prompt *domain.Prompt) error
	ListByProject(ctx context.Context, projectID int64) ([]domain.Prompt, error)
	Delete(ctx context.Context, id, projectID int64) error
}

type promptRepository struct {
	db DBTX
}

// NewPromptRepository builds repository.
func NewPromptRepository(db DBTX) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Create(ctx context.Context, prompt *domain.Prompt) error {
	const query = `
        INSERT INTO prompts (project_id, text)
        VALUES ($1, $2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, prompt.ProjectID, prompt.Text).Scan(&prompt.ID, &prompt.CreatedAt)
}

// ListByProject returns prompts oldest first.
func (r *promptRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Prompt, error) {
	const query = `
        SELECT id, project_id, text, created_at
        FROM prompts WHERE project_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Prompt, 0)
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Text, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *promptRepository) Delete(ctx context.Context, id, projectID int64) error {
	const query = `DELETE FROM prompts WHERE id=$1 AND project_id=$2`
	cmd, err := r.db.Exec(ctx, query, id, projectID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
