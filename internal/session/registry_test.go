package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heygen-community/heygen-streaming/internal/session"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

type fakeCloser struct {
	closed []string
	err    error
}

func (f *fakeCloser) CloseSession(_ context.Context, sessionID string) error {
	f.closed = append(f.closed, sessionID)
	return f.err
}

func newTestRegistry(now *time.Time) *session.Registry {
	return session.NewRegistry(store.NewMemoryStore(), 2*time.Minute,
		session.WithClock(func() time.Time { return *now }))
}

func TestRegistryTrackAndGet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(&now)

	rec, err := reg.Track(ctx, "sess-1", "avatar-1", "kb-1", "high")
	require.NoError(t, err)
	assert.Equal(t, session.StateNew, rec.State)
	assert.Equal(t, now.Add(2*time.Minute), rec.IdleDeadline)

	got, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "avatar-1", got.AvatarID)
	assert.Equal(t, "kb-1", got.KnowledgeBaseID)

	_, err = reg.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegistryTransitions(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	reg := newTestRegistry(&now)

	_, err := reg.Track(ctx, "sess-1", "avatar-1", "", "medium")
	require.NoError(t, err)

	for _, next := range []session.State{
		session.StateConnecting,
		session.StateConnected,
		session.StateClosing,
		session.StateClosed,
	} {
		rec, err := reg.Transition(ctx, "sess-1", next)
		require.NoError(t, err)
		assert.Equal(t, next, rec.State)
	}

	got, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, got.ClosedAt.IsZero())
}

func TestRegistryIllegalTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	reg := newTestRegistry(&now)

	_, err := reg.Track(ctx, "sess-1", "avatar-1", "", "")
	require.NoError(t, err)

	_, err = reg.Transition(ctx, "sess-1", session.StateConnected)
	var illegal *session.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, session.StateNew, illegal.From)
	assert.Equal(t, session.StateConnected, illegal.To)

	// Terminal states are dead ends.
	_, err = reg.Transition(ctx, "sess-1", session.StateExpired)
	require.NoError(t, err)
	_, err = reg.Transition(ctx, "sess-1", session.StateConnecting)
	assert.ErrorAs(t, err, &illegal)
}

func TestRegistryTouchExtendsDeadline(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(&now)

	_, err := reg.Track(ctx, "sess-1", "avatar-1", "", "")
	require.NoError(t, err)

	now = now.Add(90 * time.Second)
	rec, err := reg.Touch(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, now, rec.LastKeepAlive)
	assert.Equal(t, now.Add(2*time.Minute), rec.IdleDeadline)

	_, err = reg.Transition(ctx, "sess-1", session.StateExpired)
	require.NoError(t, err)
	_, err = reg.Touch(ctx, "sess-1")
	assert.Error(t, err)
}

func TestRegistryActiveExcludesTerminal(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	reg := newTestRegistry(&now)

	_, err := reg.Track(ctx, "a", "avatar-1", "", "")
	require.NoError(t, err)
	_, err = reg.Track(ctx, "b", "avatar-1", "", "")
	require.NoError(t, err)
	_, err = reg.Transition(ctx, "b", session.StateFailed)
	require.NoError(t, err)

	active, err := reg.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].SessionID)
}

func TestSweeperExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(&now)
	closer := &fakeCloser{}
	sweeper := session.NewSweeper(reg, closer, time.Second)

	_, err := reg.Track(ctx, "idle", "avatar-1", "", "")
	require.NoError(t, err)
	_, err = reg.Track(ctx, "fresh", "avatar-1", "", "")
	require.NoError(t, err)

	// Keep "fresh" alive past the idle deadline of "idle".
	now = now.Add(time.Minute)
	_, err = reg.Touch(ctx, "fresh")
	require.NoError(t, err)

	now = now.Add(90 * time.Second)
	sweeper.Sweep(ctx)

	idle, err := reg.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, session.StateExpired, idle.State)
	assert.Equal(t, []string{"idle"}, closer.closed)

	fresh, err := reg.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, session.StateNew, fresh.State)
}

func TestSweeperUpstreamCloseFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := newTestRegistry(&now)
	closer := &fakeCloser{err: errors.New("upstream down")}
	sweeper := session.NewSweeper(reg, closer, time.Second)

	_, err := reg.Track(ctx, "idle", "avatar-1", "", "")
	require.NoError(t, err)

	now = now.Add(3 * time.Minute)
	sweeper.Sweep(ctx)

	rec, err := reg.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, session.StateExpired, rec.State)
}
