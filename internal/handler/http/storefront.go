package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ai360store-ux/Digimarket/internal/catalog"
	"github.com/ai360store-ux/Digimarket/internal/checkout"
	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/pricing"
	"github.com/ai360store-ux/Digimarket/internal/store"
	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
	"github.com/ai360store-ux/Digimarket/pkg/httputil"
	"github.com/ai360store-ux/Digimarket/pkg/pagination"
)

// StorefrontHandler serves the public catalog.
type StorefrontHandler struct {
	store    *store.Store
	checkout *checkout.Builder
	logger   *slog.Logger
	now      func() time.Time
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(s *store.Store, b *checkout.Builder, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{store: s, checkout: b, logger: logger, now: time.Now}
}

// --- Request / response DTOs ---

// CheckoutRequest selects what to order: either one option by id, or a
// selection mapping subsection ids to option ids. Subsections missing from
// the selection keep their first option.
type CheckoutRequest struct {
	SubsectionID string            `json:"subsection_id" validate:"required_without=Selection"`
	OptionID     string            `json:"option_id" validate:"required_without=Selection"`
	Selection    pricing.Selection `json:"selection,omitempty"`
}

type storefrontResponse struct {
	Settings   domain.AppSettings `json:"settings"`
	Home       catalog.Home       `json:"home"`
	Categories []domain.Category  `json:"categories"`
	Live       bool               `json:"live"`
}

type productDetail struct {
	Product     domain.Product  `json:"product"`
	Thumbnail   string          `json:"thumbnail"`
	MinPrice    float64         `json:"minPrice"`
	Purchasable bool            `json:"purchasable"`
	Quotes      []pricing.Quote `json:"quotes"`
	Selection   pricing.Summary `json:"selection"`
}

type categoryProducts struct {
	Category domain.Category                   `json:"category"`
	Products pagination.Result[domain.Product] `json:"products"`
}

// --- Handlers ---

// Storefront handles GET /api/v1/storefront.
func (h *StorefrontHandler) Storefront(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, storefrontResponse{
		Settings:   h.store.Settings(),
		Home:       catalog.BuildHome(h.store.Products(), catalog.DefaultSectionSize),
		Categories: h.store.Categories(),
		Live:       h.store.IsLive(),
	})
}

// SearchProducts handles GET /api/v1/products?q=.
func (h *StorefrontHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	found := catalog.Search(h.store.Products(), r.URL.Query().Get("q"))
	httputil.WriteData(w, http.StatusOK, pagination.Slice(found, pagination.FromRequest(r)))
}

// GetProduct handles GET /api/v1/products/{id}. Inactive products are hidden.
func (h *StorefrontHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.activeProduct(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	tax, now := h.store.Settings().DefaultTaxPercent, h.now()
	summary, err := pricing.Subtotal(&p, nil, tax, now)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, productDetail{
		Product:     p,
		Thumbnail:   p.Thumbnail(),
		MinPrice:    pricing.MinimumPrice(&p),
		Purchasable: p.IsPurchasable(),
		Quotes:      pricing.Quotes(&p, tax, now),
		Selection:   summary,
	})
}

// Checkout handles POST /api/v1/products/{id}/checkout.
func (h *StorefrontHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	p, err := h.activeProduct(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if !p.IsPurchasable() {
		writeError(w, r, apperrors.Conflict("product is not available for purchase"), h.logger)
		return
	}
	single := req.SubsectionID != "" || req.OptionID != ""
	if single && len(req.Selection) > 0 {
		writeError(w, r, apperrors.InvalidInput("send either subsection_id and option_id or selection, not both"), h.logger)
		return
	}

	var order checkout.Order
	if single {
		order, err = h.checkoutOption(&p, req)
	} else {
		order, err = h.checkoutSelection(&p, req.Selection)
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "checkout link generated",
		slog.String("product_id", p.ID),
		slog.String("reference", order.Reference),
		slog.Bool("selection", !single),
	)
	httputil.WriteData(w, http.StatusOK, order)
}

func (h *StorefrontHandler) checkoutOption(p *domain.Product, req CheckoutRequest) (checkout.Order, error) {
	sub, opt, ok := p.FindOption(req.SubsectionID, req.OptionID)
	if !ok {
		return checkout.Order{}, apperrors.NotFound("price option", req.SubsectionID+"/"+req.OptionID)
	}
	if opt.Type == domain.DurationCalendar && opt.ExpiryDate != nil &&
		pricing.RemainingDays(*opt.ExpiryDate, h.now()) <= 0 {
		return checkout.Order{}, apperrors.Conflict("price option has expired")
	}
	return h.checkout.Build(p, *sub, *opt, h.store.Settings()), nil
}

func (h *StorefrontHandler) checkoutSelection(p *domain.Product, sel pricing.Selection) (checkout.Order, error) {
	for subID, optID := range sel {
		if _, _, ok := p.FindOption(subID, optID); !ok {
			return checkout.Order{}, apperrors.NotFound("price option", subID+"/"+optID)
		}
	}
	settings := h.store.Settings()
	summary, err := pricing.Subtotal(p, sel, settings.DefaultTaxPercent, h.now())
	if err != nil {
		return checkout.Order{}, err
	}
	if summary.Expired() {
		return checkout.Order{}, apperrors.Conflict("price option has expired")
	}
	return h.checkout.BuildSelection(p, summary, settings), nil
}

// ListCategories handles GET /api/v1/categories.
func (h *StorefrontHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.store.Categories())
}

// CategoryProducts handles GET /api/v1/categories/{slug}/products.
func (h *StorefrontHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	cat, products, ok := catalog.InCategory(h.store.Products(), h.store.Categories(), slug)
	if !ok {
		writeError(w, r, apperrors.NotFound("category", slug), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, categoryProducts{
		Category: cat,
		Products: pagination.Slice(products, pagination.FromRequest(r)),
	})
}

// GetSettings handles GET /api/v1/settings.
func (h *StorefrontHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.store.Settings())
}

func (h *StorefrontHandler) activeProduct(id string) (domain.Product, error) {
	p, ok := h.store.Product(id)
	if !ok || !p.IsActive() {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return p, nil
}
