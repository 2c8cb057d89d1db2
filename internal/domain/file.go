package domain

import "time"

// File is an uploaded attachment. StorageKey addresses the blob in the configured store.
type File struct {
	ID          int64
	ProjectID   int64
	Filename    string
	StorageKey  string
	SizeBytes   int64
	ContentType string
	UploadedAt  time.Time
}
