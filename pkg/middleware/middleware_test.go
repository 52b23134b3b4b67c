package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ai360store-ux/Digimarket/pkg/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestRequestLogging_PropagatesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "debug", &buf)

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(CorrelationHeader, "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-1", seen)
	assert.Equal(t, "corr-1", rec.Header().Get(CorrelationHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/api/v1/products", line["path"])
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestLogging(logger.Discard())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(CorrelationHeader), 36)
}

func TestRequestLogger_StoresEnrichedLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("test", "info", &buf)

	h := RequestLogging(logger.Discard())(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"correlation_id":"corr-2"`)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS(DefaultCORSConfig())(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestCORS_Allowlist(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: ParseOrigins("https://a.example, https://b.example/")})(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://b.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseOrigins(" a, ,b "))
	assert.Nil(t, ParseOrigins(""))
}

func TestCacheControl(t *testing.T) {
	h := CacheControl(30)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=30, stale-while-revalidate=60", rec.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestBearer(t *testing.T) {
	validate := func(tok string) (*Claims, error) {
		if tok == "good" {
			return &Claims{Subject: "admin", Role: "admin"}, nil
		}
		return nil, errors.New("bad token")
	}

	var got *Claims
	h := Bearer(validate)(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
		assert.Equal(t, "admin", logger.SessionFromContext(r.Context()))
	})))

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/overview", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.header)
	}
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Subject)
}

func TestRequireRole_Forbidden(t *testing.T) {
	validate := func(string) (*Claims, error) { return &Claims{Subject: "x", Role: "viewer"}, nil }
	h := Bearer(validate)(RequireRole("admin")(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer any")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, 1, 2, nil, logger.Discard())(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	other.RemoteAddr = "10.0.0.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVisitors_Sweep(t *testing.T) {
	now := time.Now()
	v := newVisitors(1, 1, time.Minute)
	v.now = func() time.Time { return now }
	v.get("1.1.1.1")
	v.now = func() time.Time { return now.Add(2 * time.Minute) }
	v.get("2.2.2.2")
	v.sweep()
	assert.Equal(t, 1, v.size())
}

func TestRateLimit_RotatingForwardedForFromUntrustedPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, 1, 1, NewProxyTrust([]string{"10.0.0.0/8"}, logger.Discard()), logger.Discard())(ok)

	send := func(remote, xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.9:4000", "198.51.100.1").Code)
	rec := send("203.0.113.9:4000", "198.51.100.2")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Behind a trusted proxy each forwarded client gets its own bucket.
	assert.Equal(t, http.StatusOK, send("10.1.2.3:4000", "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, send("10.1.2.3:4000", "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("10.1.2.3:4000", "198.51.100.2").Code)
}

func TestProxyTrust_ClientIP(t *testing.T) {
	trust := NewProxyTrust([]string{"10.0.0.0/8", "192.0.2.1", "bogus"}, logger.Discard())

	tests := []struct {
		name    string
		proxies *ProxyTrust
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{"no trust ignores headers", nil, "203.0.113.7:1234", "198.51.100.1", "198.51.100.2", "203.0.113.7"},
		{"untrusted peer ignores headers", trust, "203.0.113.7:1234", "198.51.100.1", "", "203.0.113.7"},
		{"trusted peer uses forwarded for", trust, "10.0.0.5:1234", "198.51.100.1", "", "198.51.100.1"},
		{"rightmost untrusted hop wins", trust, "10.0.0.5:1234", "1.1.1.1, 198.51.100.1, 10.0.0.9", "", "198.51.100.1"},
		{"garbage hops skipped", trust, "10.0.0.5:1234", "garbage, 198.51.100.4", "", "198.51.100.4"},
		{"all hops trusted uses leftmost", trust, "10.0.0.5:1234", "10.0.0.7, 10.0.0.8", "", "10.0.0.7"},
		{"bare address trusted", trust, "192.0.2.1:1234", "", "198.51.100.7", "198.51.100.7"},
		{"trusted peer without headers", trust, "10.0.0.5:1234", "", "", "10.0.0.5"},
		{"remote without port", nil, "203.0.113.7", "", "", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, tt.proxies.ClientIP(req))
		})
	}
}

func TestAuthErrors_UseEnvelope(t *testing.T) {
	viewer := func(string) (*Claims, error) { return &Claims{Subject: "x", Role: "viewer"}, nil }
	tests := []struct {
		name   string
		h      http.Handler
		header string
		status int
		code   string
	}{
		{"missing token", Bearer(viewer)(ok), "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"no claims", RequireRole("admin")(ok), "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong role", Bearer(viewer)(RequireRole("admin")(ok)), "Bearer any", http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-9"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			var env struct {
				Error struct {
					Code      string `json:"code"`
					RequestID string `json:"request_id"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, "corr-9", env.Error.RequestID)
		})
	}
}

func TestIPAllowlist(t *testing.T) {
	h := IPAllowlist([]string{"127.0.0.0/8", "not-a-cidr"}, logger.Discard())(ok)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "203.0.113.5:9999"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPrometheusMetricsAndTracing_UseRoutePattern(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := chi.NewRouter()
	r.Use(PrometheusMetrics("test"), Tracing("test"))
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/prod-3", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/products/{id}", spans[0].Name())
}
