package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// RequestsPerMinute caps the sliding window; Burst is added on top
	// to absorb short spikes.
	RequestsPerMinute int
	Burst             int
	// TrustedProxies lists networks whose X-Forwarded-For may be
	// trusted when keying by client IP.
	TrustedProxies []*net.IPNet
}

// RateLimit enforces a per-client sliding window limit. Rejected
// requests get a 429 JSON body with a Retry-After header.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limit := cfg.RequestsPerMinute + cfg.Burst
	window := time.Minute

	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIP(r, cfg.TrustedProxies), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"RATE_LIMIT_EXCEEDED","message":"too many requests, try again later"}`))
		}),
	)
}

// ParseCIDRs parses a list of CIDR strings, skipping invalid entries.
func ParseCIDRs(cidrs []string) []*net.IPNet {
	var out []*net.IPNet
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(c); err == nil {
			out = append(out, ipnet)
		}
	}
	return out
}

// ClientIP determines the originating IP. Forwarding headers are only
// honored when the direct peer is inside a trusted network.
func ClientIP(r *http.Request, trusted []*net.IPNet) string {
	if remoteIsTrusted(r.RemoteAddr, trusted) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func remoteIsTrusted(remote string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
