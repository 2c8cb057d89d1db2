package dto

import (
	"time"

	"github.com/spec-kit/chat-platform/internal/domain"
)

type FileResponse struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func NewFileResponse(f *domain.File) FileResponse {
	return FileResponse{
		ID:          f.ID,
		Filename:    f.Filename,
		FileSize:    f.SizeBytes,
		ContentType: f.ContentType,
		UploadedAt:  f.UploadedAt,
	}
}

func NewFileList(files []domain.File) []FileResponse {
	out := make([]FileResponse, 0, len(files))
	for i := range files {
		out = append(out, NewFileResponse(&files[i]))
	}
	return out
}
