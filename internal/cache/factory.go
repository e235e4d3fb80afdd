package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/heygen-community/heygen-streaming/internal/config"
)

// New builds the cache backend selected in the configuration.
func New(cfg config.CacheConfig, logger zerolog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(time.Minute), nil
	case "redis":
		return NewRedisCache(RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
