package store

import (
	"context"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
)

// CollectionStatus is the check result for one remote collection.
type CollectionStatus struct {
	Collection string `json:"collection"`
	Table      string `json:"table"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Diagnostics is what the admin debug page shows.
type Diagnostics struct {
	Connected          bool               `json:"connected"`
	Backend            string             `json:"backend,omitempty"`
	Endpoint           string             `json:"endpoint,omitempty"`
	Live               bool               `json:"live"`
	BrandName          string             `json:"brandName"`
	Products           int                `json:"products"`
	Categories         int                `json:"categories"`
	Collections        []CollectionStatus `json:"collections"`
	LastSyncError      *SyncNotice        `json:"lastSyncError,omitempty"`
	SnapshotAt         *time.Time         `json:"snapshotAt,omitempty"`
	ProvisioningScript string             `json:"provisioningScript,omitempty"`
}

// Diagnostics checks every collection and reports the store state. The
// provisioning script is included when any collection is not provisioned.
func (s *Store) Diagnostics(ctx context.Context) Diagnostics {
	s.mu.RLock()
	d := Diagnostics{
		Live:       s.live,
		BrandName:  s.settings.BrandName,
		Products:   len(s.products),
		Categories: len(s.categories),
	}
	if !s.snapshotAt.IsZero() {
		at := s.snapshotAt
		d.SnapshotAt = &at
	}
	s.mu.RUnlock()
	d.LastSyncError = s.LastSyncError()

	d.Connected = s.IsConnected()
	if d.Connected {
		d.Backend = s.gw.BackendName()
		d.Endpoint = s.gw.Endpoint()
	}

	missing := false
	for _, c := range gateway.Collections() {
		st := CollectionStatus{Collection: string(c), Table: c.Table(), Status: "ok"}
		var err error
		if s.gw == nil {
			err = gateway.ErrNotConfigured
		} else {
			err = s.gw.Check(ctx, c)
		}
		if kind := gateway.Classify(err); kind != gateway.KindNone {
			st.Status = kind.String()
			st.Error = err.Error()
			missing = missing || kind == gateway.KindSchemaMissing
		}
		d.Collections = append(d.Collections, st)
	}
	if missing {
		d.ProvisioningScript = gateway.ProvisioningScript()
	}
	return d
}
