package store

import (
	"time"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
)

// SyncStatus is the remote result of a store action.
type SyncStatus string

// Sync statuses.
const (
	// RemoteSynced means the gateway accepted the change.
	RemoteSynced SyncStatus = "synced"
	// RemoteSkipped means no gateway is configured; the change is local only.
	RemoteSkipped SyncStatus = "skipped"
	// RemoteFailed means the gateway rejected or could not receive the change.
	RemoteFailed SyncStatus = "failed"
)

// ProvisioningGuidance is attached to schema-missing failures.
const ProvisioningGuidance = "The remote tables are not provisioned. Run the provisioning script from the diagnostics page in the hosted store's SQL console, then retry."

// Outcome reports what happened remotely after the local change was applied.
// The local change stands whatever the status.
type Outcome struct {
	Status   SyncStatus
	Err      error
	Guidance string
	Warnings []string
}

// Kind classifies Err.
func (o Outcome) Kind() gateway.Kind {
	return gateway.Classify(o.Err)
}

// SyncNotice is the most recent remote failure, kept for the admin console.
type SyncNotice struct {
	Action   string    `json:"action"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	Guidance string    `json:"guidance,omitempty"`
	At       time.Time `json:"at"`
}

// outcomeFor maps a gateway error to an Outcome.
func outcomeFor(err error) Outcome {
	switch gateway.Classify(err) {
	case gateway.KindNone:
		return Outcome{Status: RemoteSynced}
	case gateway.KindNotConfigured:
		return Outcome{Status: RemoteSkipped}
	case gateway.KindSchemaMissing:
		return Outcome{Status: RemoteFailed, Err: err, Guidance: ProvisioningGuidance}
	default:
		return Outcome{Status: RemoteFailed, Err: err}
	}
}
