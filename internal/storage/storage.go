// Package storage holds uploaded catalog assets for deployments whose
// gateway backend has no object bucket of its own.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("storage: object not found")

// Storage defines the interface for asset storage operations.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Open returns the stored object for key.
	Open(ctx context.Context, key string) (*Object, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// Object is a stored file ready to be served.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	ModTime     time.Time
	Body        io.ReadSeeker
}
