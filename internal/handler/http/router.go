package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai360store-ux/Digimarket/internal/auth"
	"github.com/ai360store-ux/Digimarket/internal/checkout"
	"github.com/ai360store-ux/Digimarket/internal/storage"
	"github.com/ai360store-ux/Digimarket/internal/store"
	"github.com/ai360store-ux/Digimarket/pkg/health"
	"github.com/ai360store-ux/Digimarket/pkg/middleware"
)

// storefrontMaxAge is the public cache lifetime of catalog reads, in seconds.
const storefrontMaxAge = 30

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Store    *store.Store
	Gateway  GatewayAdmin
	Tokens   *auth.TokenManager
	Checkout *checkout.Builder
	// Assets is nil when the gateway backend stores assets remotely.
	Assets storage.Storage
	Health *health.Handler
	Logger *slog.Logger

	ServiceName       string
	MaxUploadBytes    int64
	LoginRatePerMin   int
	APIRatePerMin     int
	TrustedProxyCIDRs []string
	CORSOrigins       []string
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all catalog service routes registered.
// ctx bounds the rate limiter sweepers.
func NewRouter(ctx context.Context, d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	cors := middleware.DefaultCORSConfig()
	if len(d.CORSOrigins) > 0 {
		cors.AllowedOrigins = d.CORSOrigins
	}
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Tracing(d.ServiceName))
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.PrometheusMetrics(d.ServiceName))

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(d.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, d.PprofAllowedCIDRs, d.Logger)
	}

	if d.Assets != nil {
		assets := NewAssetHandler(d.Assets, d.Logger)
		r.With(middleware.CacheControl(86400)).Get("/assets/{key}", assets.Serve)
	}

	proxies := middleware.NewProxyTrust(d.TrustedProxyCIDRs, d.Logger)
	storefront := NewStorefrontHandler(d.Store, d.Checkout, d.Logger)
	admin := NewAdminHandler(d.Store, d.Gateway, d.Tokens, d.MaxUploadBytes, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(ctx, d.APIRatePerMin, d.APIRatePerMin/6+1, proxies, d.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(storefrontMaxAge))
			r.Get("/storefront", storefront.Storefront)
			r.Get("/products", storefront.SearchProducts)
			r.Get("/products/{id}", storefront.GetProduct)
			r.Get("/categories", storefront.ListCategories)
			r.Get("/categories/{slug}/products", storefront.CategoryProducts)
			r.Get("/settings", storefront.GetSettings)
		})
		r.Post("/products/{id}/checkout", storefront.Checkout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.With(middleware.RateLimit(ctx, d.LoginRatePerMin, min(d.LoginRatePerMin, 5), proxies, d.Logger)).
				Post("/login", admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Bearer(d.Tokens.Validator()))
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Use(admin.RequireSession)

				r.Post("/logout", admin.Logout)
				r.Get("/overview", admin.Overview)

				r.Get("/products", admin.ListProducts)
				r.Post("/products", admin.CreateProduct)
				r.Get("/products/{id}", admin.GetProduct)
				r.Put("/products/{id}", admin.UpdateProduct)
				r.Delete("/products/{id}", admin.DeleteProduct)

				r.Post("/categories", admin.CreateCategory)
				r.Delete("/categories/{id}", admin.DeleteCategory)

				r.Put("/settings", admin.UpdateSettings)
				r.Post("/assets", admin.UploadAsset)

				r.Put("/gateway", admin.ConfigureGateway)
				r.Get("/diagnostics", admin.Diagnostics)
				r.Post("/refresh", admin.Refresh)
				r.Post("/sync", admin.PushAll)
			})
		})
	})

	return r
}
