// Package api implements the gateway HTTP surface over the HeyGen
// streaming API.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heygen-community/heygen-streaming/internal/cache"
	"github.com/heygen-community/heygen-streaming/internal/config"
	"github.com/heygen-community/heygen-streaming/internal/health"
	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/middleware"
	"github.com/heygen-community/heygen-streaming/internal/resilience"
	"github.com/heygen-community/heygen-streaming/internal/session"
)

// Server wires the upstream client, session registry and supporting
// infrastructure behind the gateway routes.
type Server struct {
	cfg      config.AppConfig
	client   *heygen.Client
	registry *session.Registry
	cache    cache.Cache
	breaker  *resilience.CircuitBreaker
	health   *health.Manager
}

// NewServer builds a Server. The circuit breaker is created from the
// upstream settings in cfg.
func NewServer(cfg config.AppConfig, client *heygen.Client, registry *session.Registry, c cache.Cache, healthMgr *health.Manager) *Server {
	return &Server{
		cfg:      cfg,
		client:   client,
		registry: registry,
		cache:    c,
		breaker: resilience.NewCircuitBreaker("heygen",
			cfg.HeyGen.BreakerThreshold, cfg.HeyGen.BreakerReset),
		health: healthMgr,
	}
}

// Router assembles the full gateway router: canonical middleware
// stack, public probes, and the authenticated /streaming surface.
func (s *Server) Router() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        "heygen-streaming",
		EnableLogging:         true,
		EnableRateLimit:       s.cfg.RateLimit.Enabled,
		RateLimitPerMin:       s.cfg.RateLimit.RequestsPerMin,
		RateLimitBurst:        s.cfg.RateLimit.Burst,
		TrustedProxyCIDR:      s.cfg.TrustedProxies,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/streaming", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/active", s.handleActiveSessions)
		r.Get("/sessions/history", s.handleSessionHistory)
		r.Post("/start", s.handleStartSession)
		r.Post("/sessions/{sessionID}/close", s.handleCloseSession)
		r.Post("/sessions/{sessionID}/keepalive", s.handleKeepAlive)
		r.Post("/sessions/{sessionID}/interrupt", s.handleInterruptTask)
		r.Post("/sessions/{sessionID}/tokens", s.handleCreateToken)

		r.Post("/tasks", s.handleSendTask)

		r.Get("/avatars", s.handleListAvatars)

		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Post("/", s.handleCreateKnowledgeBase)
			r.Get("/", s.handleListKnowledgeBases)
			r.Put("/{kbID}", s.handleUpdateKnowledgeBase)
			r.Delete("/{kbID}", s.handleDeleteKnowledgeBase)
		})
	})

	return r
}

// upstream runs fn behind the circuit breaker. Only errors that
// indicate an unhealthy upstream count towards opening the circuit;
// caller mistakes (validation, unknown IDs) pass through untallied.
func (s *Server) upstream(fn func() error) error {
	var callErr error
	err := s.breaker.Execute(func() error {
		callErr = fn()
		if callErr != nil && !isBreakerFailure(callErr) {
			return nil
		}
		return callErr
	})
	if err != nil {
		return err
	}
	return callErr
}

func isBreakerFailure(err error) bool {
	return errors.Is(err, heygen.ErrServer) ||
		errors.Is(err, heygen.ErrUnavailable) ||
		errors.Is(err, heygen.ErrTimeout) ||
		errors.Is(err, heygen.ErrBadResponse)
}

// decodeBody parses a JSON request body into v, answering 400 itself
// on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSONBody(r, v); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return false
	}
	return true
}
