package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ai360store-ux/Digimarket/internal/auth"
	"github.com/ai360store-ux/Digimarket/internal/catalog"
	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/media"
	"github.com/ai360store-ux/Digimarket/internal/store"
	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
	"github.com/ai360store-ux/Digimarket/pkg/httputil"
	"github.com/ai360store-ux/Digimarket/pkg/pagination"
)

// GatewayAdmin is the part of *gateway.Client the admin API drives directly.
type GatewayAdmin interface {
	Configure(ctx context.Context, creds gateway.Credentials) error
	UploadAsset(ctx context.Context, a gateway.Asset) (string, error)
}

// AdminHandler serves the admin console API.
type AdminHandler struct {
	store     *store.Store
	gateway   GatewayAdmin
	tokens    *auth.TokenManager
	maxUpload int64
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(s *store.Store, gw GatewayAdmin, tokens *auth.TokenManager, maxUpload int64, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: s, gateway: gw, tokens: tokens, maxUpload: maxUpload, logger: logger}
}

// --- Request / response DTOs ---

// LoginRequest carries the shared admin key.
type LoginRequest struct {
	Key string `json:"key" validate:"required"`
}

// GatewayRequest carries hosted store credentials.
type GatewayRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	Key       string `json:"key" validate:"required"`
	URL       string `json:"url" validate:"omitempty,url"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type overviewResponse struct {
	catalog.Overview
	Live          bool              `json:"live"`
	Connected     bool              `json:"connected"`
	LastSyncError *store.SyncNotice `json:"lastSyncError,omitempty"`
}

type refreshResponse struct {
	Live       bool `json:"live"`
	Products   int  `json:"products"`
	Categories int  `json:"categories"`
}

type assetResponse struct {
	URL string `json:"url"`
}

// --- Middleware ---

// RequireSession rejects tokens issued before the last logout.
func (h *AdminHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.store.IsAdmin() {
			writeError(w, r, apperrors.Unauthorized("admin session is closed"), h.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Session ---

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if err := h.store.Login(r.Context(), req.Key); err != nil {
		h.logger.WarnContext(r.Context(), "admin login rejected")
		writeError(w, r, err, h.logger)
		return
	}
	token, expires, err := h.tokens.Issue()
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "admin logged in")
	httputil.WriteData(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

// Logout handles POST /api/v1/admin/logout.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// --- Catalog ---

// Overview handles GET /api/v1/admin/overview.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, overviewResponse{
		Overview:      catalog.BuildOverview(h.store.Products(), h.store.Categories()),
		Live:          h.store.IsLive(),
		Connected:     h.store.IsConnected(),
		LastSyncError: h.store.LastSyncError(),
	})
}

// ListProducts handles GET /api/v1/admin/products?q=.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	found := catalog.FilterByTitle(h.store.Products(), r.URL.Query().Get("q"))
	httputil.WriteData(w, http.StatusOK, pagination.Slice(found, pagination.FromRequest(r)))
}

// GetProduct handles GET /api/v1/admin/products/{id}, inactive included.
func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.store.Product(id)
	if !ok {
		writeError(w, r, apperrors.NotFound("product", id), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	saved, out, err := h.store.AddProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusCreated, saved, out)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if p.ID != "" && p.ID != id {
		writeError(w, r, apperrors.InvalidInput("product id in body does not match the path"), h.logger)
		return
	}
	p.ID = id
	saved, out, err := h.store.UpdateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusOK, saved, out)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusOK, nil, out)
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	saved, out, err := h.store.AddCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusCreated, saved, out)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusOK, nil, out)
}

// UpdateSettings handles PUT /api/v1/admin/settings.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s domain.AppSettings
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	saved, out, err := h.store.UpdateSettings(r.Context(), s)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeMutation(w, http.StatusOK, saved, out)
}

// --- Assets ---

// UploadAsset handles POST /api/v1/admin/assets (multipart/form-data, field "file").
func (h *AdminHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, r, apperrors.InvalidInput("failed to parse multipart form: "+err.Error()), h.logger)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperrors.InvalidInput("file is required"), h.logger)
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeError(w, r, apperrors.InvalidInput("file is too large"), h.logger)
		return
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.maxUpload+1)); err != nil {
		writeError(w, r, apperrors.InvalidInput("failed to read file"), h.logger)
		return
	}
	if int64(buf.Len()) > h.maxUpload {
		writeError(w, r, apperrors.InvalidInput("file is too large"), h.logger)
		return
	}
	contentType := http.DetectContentType(buf.Bytes())
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, r, apperrors.InvalidInput("only image uploads are accepted"), h.logger)
		return
	}

	asset := h.prepareAsset(r, header.Filename, contentType, buf.Bytes())
	url, err := h.gateway.UploadAsset(r.Context(), asset)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, assetResponse{URL: url})
}

// prepareAsset scales and re-encodes an image per the storefront settings.
// Any failure keeps the upload as sent.
func (h *AdminHandler) prepareAsset(r *http.Request, filename, contentType string, data []byte) gateway.Asset {
	settings := h.store.Settings()
	img, err := media.Prepare(data, contentType, media.Options{
		MaxWidth: media.MaxWidth,
		Quality:  settings.DefaultImageQuality,
		Format:   settings.PreferredImageFormat,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "image preparation failed, storing original",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return gateway.Asset{Filename: filename, ContentType: contentType, Data: data}
	}
	if img.Changed {
		h.logger.DebugContext(r.Context(), "image prepared",
			slog.String("content_type", img.ContentType),
			slog.Int("width", img.Width),
			slog.Int("bytes_in", len(data)),
			slog.Int("bytes_out", len(img.Data)),
		)
	}
	return gateway.Asset{
		Filename:    media.Rename(filename, img.ContentType),
		ContentType: img.ContentType,
		Data:        img.Data,
	}
}

// --- Gateway maintenance ---

// ConfigureGateway handles PUT /api/v1/admin/gateway and reloads the catalog.
func (h *AdminHandler) ConfigureGateway(w http.ResponseWriter, r *http.Request) {
	var req GatewayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	err := h.gateway.Configure(r.Context(), gateway.Credentials{
		ProjectID: req.ProjectID,
		AccessKey: req.Key,
		Endpoint:  req.URL,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	out := h.store.Refresh(r.Context())
	writeMutation(w, http.StatusOK, h.refreshData(), out)
}

// Diagnostics handles GET /api/v1/admin/diagnostics.
func (h *AdminHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.store.Diagnostics(r.Context()))
}

// Refresh handles POST /api/v1/admin/refresh.
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	out := h.store.Refresh(r.Context())
	writeMutation(w, http.StatusOK, h.refreshData(), out)
}

// PushAll handles POST /api/v1/admin/sync.
func (h *AdminHandler) PushAll(w http.ResponseWriter, r *http.Request) {
	report, out := h.store.PushAll(r.Context())
	writeMutation(w, http.StatusOK, report, out)
}

func (h *AdminHandler) refreshData() refreshResponse {
	return refreshResponse{
		Live:       h.store.IsLive(),
		Products:   len(h.store.Products()),
		Categories: len(h.store.Categories()),
	}
}
