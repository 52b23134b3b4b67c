package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust decides when forwarding headers name the real client. Only
// requests whose peer address falls in one of its networks may use
// X-Forwarded-For or X-Real-IP. A nil ProxyTrust trusts nobody.
type ProxyTrust struct {
	nets []*net.IPNet
}

// NewProxyTrust parses cidrs. Bare addresses are accepted as single-host
// networks; anything else unparseable is logged and skipped.
func NewProxyTrust(cidrs []string, l *slog.Logger) *ProxyTrust {
	return &ProxyTrust{nets: parseNets(cidrs, "trusted proxy", l)}
}

func (p *ProxyTrust) trusts(ip net.IP) bool {
	if p == nil || ip == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the connection's remote host unless that host is a trusted
// proxy. Behind a trusted proxy, X-Forwarded-For is walked from the right and
// the first address that is not itself trusted wins; X-Real-IP is the fallback.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !p.trusts(net.ParseIP(peer)) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		var leftmost string
		for i := len(parts) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(parts[i]))
			if ip == nil {
				continue
			}
			if !p.trusts(ip) {
				return ip.String()
			}
			leftmost = ip.String()
		}
		if leftmost != "" {
			return leftmost
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseNets(cidrs []string, what string, l *slog.Logger) []*net.IPNet {
	var nets []*net.IPNet
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if ip := net.ParseIP(c); ip != nil {
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			l.Warn("invalid "+what+" CIDR, skipping", slog.String("cidr", c), slog.String("error", err.Error()))
			continue
		}
		nets = append(nets, n)
	}
	return nets
}
