// Package store persists locally tracked session records.
package store

import (
	"context"
	"errors"

	"github.com/heygen-community/heygen-streaming/internal/session"
)

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("session record not found")

// Store persists session records. Implementations must be safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, rec *session.Record) error
	Get(ctx context.Context, sessionID string) (*session.Record, error)
	// List returns all records, terminal ones included.
	List(ctx context.Context) ([]*session.Record, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
