// Package config provides configuration loading for the heygen-streaming
// gateway with precedence ENV > file > defaults.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	// HTTP surface
	ListenAddr  string
	MetricsAddr string

	// Gateway auth
	APIToken      string
	AuthAnonymous bool

	AllowedOrigins []string
	TrustedProxies []string

	RateLimit RateLimitConfig
	HeyGen    HeyGenConfig
	Session   SessionConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig

	LogLevel string
	Version  string
}

// RateLimitConfig controls the per-IP ingress limiter.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	Burst          int
}

// HeyGenConfig configures the upstream API client.
type HeyGenConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64 // client-side throttle towards the upstream; 0 disables
	RateBurst  int

	// Circuit breaker
	BreakerThreshold int
	BreakerReset     time.Duration
}

// SessionConfig configures local session tracking.
type SessionConfig struct {
	Store         string // memory | sqlite | badger
	Path          string // DSN or directory for persistent stores
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// CacheConfig configures the avatar catalog cache.
type CacheConfig struct {
	Backend   string // memory | redis
	RedisAddr string
	RedisDB   int
	TTL       time.Duration
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	ExporterType string // grpc | http
	Endpoint     string
	SamplingRate float64
}
