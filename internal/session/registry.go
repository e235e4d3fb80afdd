package session

import (
	"context"
	"fmt"
	"time"

	"github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/metrics"
)

// Persistence is the slice of the store API the registry needs.
type Persistence interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// Registry tracks the lifecycle of gateway-created sessions on top of
// a persistence backend. It enforces transition legality and publishes
// the active session gauge.
type Registry struct {
	store       Persistence
	idleTimeout time.Duration
	now         func() time.Time
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry builds a registry over the given store. idleTimeout
// bounds how long a session may go without a keep-alive before the
// sweeper expires it.
func NewRegistry(store Persistence, idleTimeout time.Duration, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:       store,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track records a freshly created upstream session in state NEW.
func (r *Registry) Track(ctx context.Context, sessionID, avatarID, kbID, quality string) (*Record, error) {
	now := r.now().UTC()
	rec := &Record{
		SessionID:       sessionID,
		AvatarID:        avatarID,
		KnowledgeBaseID: kbID,
		Quality:         quality,
		State:           StateNew,
		CreatedAt:       now,
		UpdatedAt:       now,
		IdleDeadline:    now.Add(r.idleTimeout),
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("track session %s: %w", sessionID, err)
	}
	r.publishGauge(ctx)

	log.WithComponentFromContext(ctx, "session").Info().
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldAvatarID, avatarID).
		Msg("session tracked")
	return rec, nil
}

// Transition moves a session to a new state, rejecting illegal moves
// with an IllegalTransitionError. Terminal states stamp ClosedAt.
func (r *Registry) Transition(ctx context.Context, sessionID string, to State) (*Record, error) {
	rec, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.State, to) {
		return nil, &IllegalTransitionError{SessionID: sessionID, From: rec.State, To: to}
	}

	from := rec.State
	now := r.now().UTC()
	rec.State = to
	rec.UpdatedAt = now
	if to.IsTerminal() {
		rec.ClosedAt = now
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("transition session %s: %w", sessionID, err)
	}
	r.publishGauge(ctx)

	log.WithComponentFromContext(ctx, "session").Info().
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("session state changed")
	return rec, nil
}

// Touch extends the idle deadline after a keep-alive or task. Touching
// a terminal session is a no-op error so callers can surface it.
func (r *Registry) Touch(ctx context.Context, sessionID string) (*Record, error) {
	rec, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.State.IsTerminal() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, rec.State, ErrTerminal)
	}
	now := r.now().UTC()
	rec.LastKeepAlive = now
	rec.UpdatedAt = now
	rec.IdleDeadline = now.Add(r.idleTimeout)
	if err := r.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("touch session %s: %w", sessionID, err)
	}
	return rec, nil
}

// Get returns a tracked session.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Record, error) {
	return r.store.Get(ctx, sessionID)
}

// Active returns all non-terminal sessions.
func (r *Registry) Active(ctx context.Context) ([]*Record, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(all))
	for _, rec := range all {
		if !rec.State.IsTerminal() {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Remove drops a session record entirely.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	if err := r.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	r.publishGauge(ctx)
	return nil
}

func (r *Registry) publishGauge(ctx context.Context) {
	active, err := r.Active(ctx)
	if err != nil {
		log.WithComponentFromContext(ctx, "session").Warn().Err(err).Msg("active session count unavailable")
		return
	}
	metrics.SetActiveSessions(len(active))
}
