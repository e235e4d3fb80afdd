// Package middleware provides the HTTP ingress middleware stack for
// the gateway.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/heygen-community/heygen-streaming/internal/log"
)

// StackConfig configures the canonical ingress middleware stack. A
// single stack keeps cross-cutting concerns from drifting between
// listeners.
type StackConfig struct {
	// CORS
	EnableCORS     bool
	AllowedOrigins []string

	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting
	EnableRateLimit  bool
	RateLimitPerMin  int
	RateLimitBurst   int
	TrustedProxyCIDR []string
}

// NewRouter constructs a chi router with the canonical stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r. Order:
// recovery outermost, then correlation, browser concerns,
// observability, and rate limiting innermost.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.EnableRateLimit {
		r.Use(RateLimit(RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMin,
			Burst:             cfg.RateLimitBurst,
			TrustedProxies:    ParseCIDRs(cfg.TrustedProxyCIDR),
		}))
	}
}
