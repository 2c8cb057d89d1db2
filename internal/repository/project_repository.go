package repository

import (
	"context"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// ProjectRepository manages projects. Reads and writes are scoped to the owning user.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Project, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.Project, error)
	Rename(ctx context.Context, id, userID int64, name string) error
	Delete(ctx context.Context, id, userID int64) error
}

type projectRepository struct {
	db DBTX
}

// NewProjectRepository builds repository.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (user_id, name)
        VALUES ($1, $2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, project.UserID, project.Name).Scan(&project.ID, &project.CreatedAt)
}

func (r *projectRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Project, error) {
	const query = `
        SELECT id, user_id, name, created_at
        FROM projects WHERE user_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *projectRepository) GetForUser(ctx context.Context, id, userID int64) (*domain.Project, error) {
	const query = `
        SELECT id, user_id, name, created_at
        FROM projects WHERE id=$1 AND user_id=$2`
	var p domain.Project
	if err := r.db.QueryRow(ctx, query, id, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func (r *projectRepository) Rename(ctx context.Context, id, userID int64, name string) error {
	const query = `UPDATE projects SET name=$1 WHERE id=$2 AND user_id=$3`
	cmd, err := r.db.Exec(ctx, query, name, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id, userID int64) error {
	const query = `DELETE FROM projects WHERE id=$1 AND user_id=$2`
	cmd, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
