package gateway

import (
	"context"
	"encoding/json"
	"time"
)

// Backend is one concrete remote store. Implementations classify their
// failures with SchemaMissing or Transport; anything else is treated as a
// transport failure.
type Backend interface {
	// Name identifies the backend in logs and diagnostics.
	Name() string
	// FetchAll returns the data payload of every row in table.
	FetchAll(ctx context.Context, table string) ([]json.RawMessage, error)
	// Upsert creates or fully replaces the row with id.
	Upsert(ctx context.Context, table, id string, data json.RawMessage, updatedAt time.Time) error
	// Remove deletes the row with id. Missing rows are not an error.
	Remove(ctx context.Context, table, id string) error
	// Check is a cheap accessibility check of table.
	Check(ctx context.Context, table string) error
	// Upload stores a blob under name and returns its public URL.
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Credentials identify a hosted store project.
type Credentials struct {
	ProjectID string `json:"projectId"`
	AccessKey string `json:"key"`
	// Endpoint overrides the URL derived from ProjectID.
	Endpoint string `json:"url,omitempty"`
}

// Complete reports whether both an endpoint source and a key are present.
func (c Credentials) Complete() bool {
	return (c.ProjectID != "" || c.Endpoint != "") && c.AccessKey != ""
}

// BackendFactory builds a backend for a resolved endpoint and key.
type BackendFactory func(endpoint, accessKey string) (Backend, error)
