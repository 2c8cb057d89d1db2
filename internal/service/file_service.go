package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/repository"
	"github.com/spec-kit/chat-platform/internal/storage"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

// FileService stores project uploads.
type FileService struct {
	projects repository.ProjectRepository
	files    repository.FileRepository
	blobs    storage.BlobStore
	maxSize  int64
	logger   *zap.Logger
}

// NewFileService builds the service. maxSize <= 0 disables the size check.
func NewFileService(projects repository.ProjectRepository, files repository.FileRepository, blobs storage.BlobStore, maxSize int64, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{projects: projects, files: files, blobs: blobs, maxSize: maxSize, logger: logger}
}

// Upload stores body under a fresh key and records it. The original filename is kept for display only.
func (s *FileService) Upload(ctx context.Context, userID, projectID int64, filename, contentType string, size int64, body io.Reader) (*domain.File, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	name := cleanFilename(filename)
	if name == "" {
		return nil, apperrors.NewValidationError("file name is required", map[string]any{"file": "missing filename"})
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, apperrors.NewPayloadTooLarge(fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	key := fmt.Sprintf("%d/%s%s", projectID, uuid.NewString(), strings.ToLower(filepath.Ext(name)))
	if err := s.blobs.Put(ctx, key, body, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &domain.File{
		ProjectID:   projectID,
		Filename:    name,
		StorageKey:  key,
		SizeBytes:   size,
		ContentType: contentType,
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return file, nil
}

func (s *FileService) List(ctx context.Context, userID, projectID int64) ([]domain.File, error) {
	if _, err := ownedProject(ctx, s.projects, userID, projectID); err != nil {
		return nil, err
	}
	return s.files.ListByProject(ctx, projectID)
}

// Open returns the file record and its contents. The caller closes the reader.
func (s *FileService) Open(ctx context.Context, userID, fileID int64) (*domain.File, io.ReadCloser, error) {
	file, err := s.files.GetForUser(ctx, fileID, userID)
	if err != nil {
		return nil, nil, notFound(err, "file")
	}
	rc, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("file", nil)
		}
		return nil, nil, err
	}
	return file, rc, nil
}

// Delete removes the record first; a blob that cannot be removed is logged and left behind.
func (s *FileService) Delete(ctx context.Context, userID, fileID int64) error {
	file, err := s.files.GetForUser(ctx, fileID, userID)
	if err != nil {
		return notFound(err, "file")
	}
	if err := s.files.Delete(ctx, file.ID); err != nil {
		return notFound(err, "file")
	}
	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Warn("blob delete failed", zap.String("key", file.StorageKey), zap.Error(err))
	}
	return nil
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
