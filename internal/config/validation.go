package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validStores = map[string]bool{"memory": true, "sqlite": true, "badger": true}
var validCacheBackends = map[string]bool{"memory": true, "redis": true}
var validExporters = map[string]bool{"grpc": true, "http": true}

// Validate checks the final configuration for consistency.
func Validate(cfg AppConfig) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if cfg.HeyGen.APIKey == "" {
		return fmt.Errorf("HEYGEN_API_KEY is required")
	}

	u, err := url.Parse(cfg.HeyGen.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid heygen base_url %q", cfg.HeyGen.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("heygen base_url must be http(s), got %q", u.Scheme)
	}

	if cfg.HeyGen.Timeout <= 0 {
		return fmt.Errorf("heygen timeout must be positive")
	}
	if cfg.HeyGen.BreakerThreshold < 0 {
		return fmt.Errorf("breaker threshold must be >= 0")
	}

	store := strings.ToLower(cfg.Session.Store)
	if !validStores[store] {
		return fmt.Errorf("unknown session store %q (memory, sqlite, badger)", cfg.Session.Store)
	}
	if store != "memory" && cfg.Session.Path == "" {
		return fmt.Errorf("session store %q requires session.path", store)
	}
	if cfg.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session idle_timeout must be positive")
	}
	if cfg.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep_interval must be positive")
	}

	backend := strings.ToLower(cfg.Cache.Backend)
	if !validCacheBackends[backend] {
		return fmt.Errorf("unknown cache backend %q (memory, redis)", cfg.Cache.Backend)
	}
	if backend == "redis" && cfg.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires redis_addr")
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate limit requests_per_min must be positive when enabled")
	}

	if cfg.Telemetry.Enabled {
		if !validExporters[cfg.Telemetry.ExporterType] {
			return fmt.Errorf("unknown telemetry exporter %q (grpc, http)", cfg.Telemetry.ExporterType)
		}
		if cfg.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry enabled but endpoint is empty")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("telemetry sampling_rate must be in [0,1]")
	}

	if cfg.APIToken == "" && !cfg.AuthAnonymous {
		// Fail-closed is enforced at the auth middleware; surface it early here.
		return fmt.Errorf("HGS_API_TOKEN not set and HGS_AUTH_ANONYMOUS != true")
	}

	return nil
}
