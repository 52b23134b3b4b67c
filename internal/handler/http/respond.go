package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/store"
	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
	"github.com/ai360store-ux/Digimarket/pkg/httputil"
	"github.com/ai360store-ux/Digimarket/pkg/validator"
)

// syncError describes a failed remote write inside a mutation response.
type syncError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// syncView is the remote half of a mutation response.
type syncView struct {
	Status   store.SyncStatus `json:"status"`
	Error    *syncError       `json:"error,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// mutationResponse carries the locally applied entity and the remote outcome.
type mutationResponse struct {
	Data any      `json:"data,omitempty"`
	Sync syncView `json:"sync"`
}

func newSyncView(out store.Outcome) syncView {
	v := syncView{Status: out.Status, Warnings: out.Warnings}
	if out.Err != nil {
		v.Error = &syncError{
			Kind:    out.Kind().String(),
			Message: out.Err.Error(),
			Hint:    out.Guidance,
		}
	}
	return v
}

func writeMutation(w http.ResponseWriter, status int, data any, out store.Outcome) {
	httputil.WriteJSON(w, status, mutationResponse{Data: data, Sync: newSyncView(out)})
}

// gatewayAppError maps a gateway failure onto the HTTP error taxonomy.
func gatewayAppError(err error) error {
	switch gateway.Classify(err) {
	case gateway.KindNone:
		return nil
	case gateway.KindNotConfigured:
		return apperrors.Unavailable("GATEWAY_NOT_CONFIGURED", "remote gateway is not configured", err)
	case gateway.KindSchemaMissing:
		return apperrors.FailedDependency("SCHEMA_MISSING", "remote storage is not provisioned", err).
			WithHint(gateway.ProvisioningScript())
	default:
		return apperrors.BadGateway("GATEWAY_UNAVAILABLE", "remote gateway request failed", err)
	}
}

// writeError maps gateway and configuration errors before falling back to
// the shared envelope writer.
func writeError(w http.ResponseWriter, r *http.Request, err error, l *slog.Logger) {
	var ge *gateway.Error
	switch {
	case errors.As(err, &ge):
		err = gatewayAppError(err)
	case errors.Is(err, store.ErrInvalidKey):
		err = apperrors.Unauthorized("invalid admin key")
	case errors.Is(err, gateway.ErrIncompleteCredentials):
		err = apperrors.InvalidInput(err.Error())
	case errors.Is(err, gateway.ErrBackendFixed):
		err = apperrors.Conflict(err.Error())
	}
	httputil.WriteError(w, r, err, l)
}

// decodeJSON reads a JSON body; malformed bodies are client errors.
// Entities are validated by the store after normalization.
func decodeJSON(r *http.Request, dst any) error {
	if err := validator.Decode(r, dst); err != nil {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// decode reads and validates a request DTO.
func decode(r *http.Request, dst any) error {
	err := validator.DecodeAndValidate(r, dst)
	var verr *validator.ValidationError
	if err != nil && !errors.As(err, &verr) {
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return err
}
