package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ai360store-ux/Digimarket/internal/storage"
	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
)

// AssetHandler serves uploaded assets kept in local storage.
type AssetHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewAssetHandler creates a new asset HTTP handler.
func NewAssetHandler(s storage.Storage, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{storage: s, logger: logger}
}

// Serve handles GET /assets/{key}.
func (h *AssetHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	obj, err := h.storage.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.NotFound("asset", key)
		}
		writeError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, obj.Key, obj.ModTime, obj.Body)
}
