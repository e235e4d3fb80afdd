package session

import (
	"context"
	"time"

	"github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/metrics"
)

// UpstreamCloser closes an upstream session. Satisfied by the HeyGen
// client; the sweeper uses it best-effort when expiring sessions.
type UpstreamCloser interface {
	CloseSession(ctx context.Context, sessionID string) error
}

// Sweeper periodically expires sessions whose idle deadline has
// passed. Expired sessions are transitioned to EXPIRED locally and
// closed upstream on a best-effort basis.
type Sweeper struct {
	registry *Registry
	closer   UpstreamCloser
	interval time.Duration
}

// NewSweeper builds a sweeper over the registry. closer may be nil to
// skip upstream cleanup.
func NewSweeper(registry *Registry, closer UpstreamCloser, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sweeper{registry: registry, closer: closer, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := log.WithComponent("sweeper")
	logger.Info().Dur("interval", s.interval).Msg("idle session sweeper started")

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			logger.Info().Msg("idle session sweeper stopped")
			return ctx.Err()
		}
	}
}

// Sweep expires every active session past its idle deadline. It is
// exported so tests and operators can trigger a pass directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	logger := log.WithComponent("sweeper")

	active, err := s.registry.Active(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("sweep: listing active sessions failed")
		return
	}

	now := s.registry.now().UTC()
	for _, rec := range active {
		if rec.IdleDeadline.After(now) {
			continue
		}
		if _, err := s.registry.Transition(ctx, rec.SessionID, StateExpired); err != nil {
			logger.Warn().Err(err).
				Str(log.FieldSessionID, rec.SessionID).
				Msg("sweep: expiry transition failed")
			continue
		}
		metrics.IncSessionsExpired()

		if s.closer != nil {
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.closer.CloseSession(closeCtx, rec.SessionID); err != nil {
				logger.Warn().Err(err).
					Str(log.FieldSessionID, rec.SessionID).
					Msg("sweep: upstream close failed")
			}
			cancel()
		}

		logger.Info().
			Str(log.FieldSessionID, rec.SessionID).
			Time("idle_deadline", rec.IdleDeadline).
			Msg("idle session expired")
	}
}
