// Package storage keeps uploaded file contents, addressed by an opaque key.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no blob exists for a key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey rejects keys that would escape the store.
	ErrInvalidKey = errors.New("invalid storage key")
)

// BlobStore persists file contents.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
