package store

import (
	"fmt"

	"github.com/heygen-community/heygen-streaming/internal/config"
)

// New builds the store backend selected in the configuration.
// Config validation guarantees the backend name is known and that
// persistent backends carry a path, but unknown values still fail
// loudly here.
func New(cfg config.SessionConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "badger":
		return NewBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Store)
	}
}
