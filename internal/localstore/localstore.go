// Package localstore keeps the small durable values that must survive a
// restart: the last catalog snapshot, gateway credentials and the admin
// flag. Values are stored as JSON.
package localstore

import (
	"context"
	"errors"
)

// Slot names.
const (
	SlotSnapshot    = "dm_catalog_snapshot"
	SlotCredentials = "dm_supabase_config"
	SlotAdminAuth   = "dm_admin_auth"
)

// ErrNotFound is returned by Get for an empty slot.
var ErrNotFound = errors.New("localstore: slot not found")

// Slots is a tiny durable key-value store.
type Slots interface {
	// Get decodes the slot into dst or returns ErrNotFound.
	Get(ctx context.Context, slot string, dst any) error
	// Set replaces the slot with v.
	Set(ctx context.Context, slot string, v any) error
	// Delete clears the slot. Clearing an empty slot is not an error.
	Delete(ctx context.Context, slot string) error
}
