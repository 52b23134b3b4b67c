package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
	"github.com/ai360store-ux/Digimarket/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per client IP and forgets idle clients.
type visitors struct {
	mu    sync.Mutex
	byIP  map[string]*visitor
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

func newVisitors(limit rate.Limit, burst int, ttl time.Duration) *visitors {
	return &visitors{
		byIP:  make(map[string]*visitor),
		limit: limit,
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.byIP[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byIP[ip] = vis
	}
	vis.lastSeen = v.now()
	return vis.limiter
}

func (v *visitors) sweep() {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	for ip, vis := range v.byIP {
		if now.Sub(vis.lastSeen) > v.ttl {
			delete(v.byIP, ip)
		}
	}
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byIP)
}

func (v *visitors) sweepLoop(ctx context.Context) {
	t := time.NewTicker(v.ttl)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v.sweep()
		}
	}
}

// RateLimit allows perMinute requests per client IP with the given burst and
// answers 429 beyond that. The client IP is resolved through proxies, which
// may be nil. Idle entries are swept until ctx is cancelled.
func RateLimit(ctx context.Context, perMinute, burst int, proxies *ProxyTrust, l *slog.Logger) func(http.Handler) http.Handler {
	if burst <= 0 {
		burst = 1
	}
	store := newVisitors(rate.Limit(float64(perMinute)/60), burst, 5*time.Minute)
	go store.sweepLoop(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			if !store.get(ip).Allow() {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "60")
				httputil.WriteError(w, r, apperrors.TooManyRequests("too many requests"), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
