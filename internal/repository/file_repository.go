package repository

import (
	"context"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// FileRepository manages upload metadata.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	ListByProject(ctx context.Context, projectID int64) ([]domain.File, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.File, error)
	Delete(ctx context.Context, id int64) error
}

type fileRepository struct {
	db DBTX
}

// NewFileRepository builds repository.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *domain.File) error {
	const query = `
        INSERT INTO files (project_id, filename, storage_key, size_bytes, content_type)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, uploaded_at`
	return r.db.QueryRow(ctx, query,
		file.ProjectID,
		file.Filename,
		file.StorageKey,
		file.SizeBytes,
		file.ContentType,
	).Scan(&file.ID, &file.UploadedAt)
}

func (r *fileRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.File, error) {
	const query = `
        SELECT id, project_id, filename, storage_key, size_bytes, content_type, uploaded_at
        FROM files WHERE project_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.File, 0)
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(
			&f.ID,
			&f.ProjectID,
			&f.Filename,
			&f.StorageKey,
			&f.SizeBytes,
			&f.ContentType,
			&f.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetForUser loads a file only if its project belongs to userID.
func (r *fileRepository) GetForUser(ctx context.Context, id, userID int64) (*domain.File, error) {
	const query = `
        SELECT f.id, f.project_id, f.filename, f.storage_key, f.size_bytes, f.content_type, f.uploaded_at
        FROM files f JOIN projects p ON p.id = f.project_id
        WHERE f.id=$1 AND p.user_id=$2`
	var f domain.File
	if err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&f.ID,
		&f.ProjectID,
		&f.Filename,
		&f.StorageKey,
		&f.SizeBytes,
		&f.ContentType,
		&f.UploadedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &f, nil
}

func (r *fileRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM files WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
