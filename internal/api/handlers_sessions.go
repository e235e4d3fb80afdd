package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/session"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

// handleCreateSession creates an upstream session and tracks it.
// POST /streaming/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req heygen.NewSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}

	var detail *heygen.SessionDetail
	err := s.upstream(func() error {
		var callErr error
		detail, callErr = s.client.NewSession(r.Context(), &req)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	ctx := log.ContextWithSessionID(r.Context(), detail.SessionID)
	if _, err := s.registry.Track(ctx, detail.SessionID, req.AvatarID, req.KnowledgeBaseID, req.Quality); err != nil {
		// The upstream session exists; close it rather than leak it.
		if closeErr := s.client.CloseSession(ctx, detail.SessionID); closeErr != nil {
			log.FromContext(ctx).Warn().Err(closeErr).
				Str(log.FieldSessionID, detail.SessionID).
				Msg("failed to close untracked upstream session")
		}
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

type sessionIDBody struct {
	SessionID string `json:"session_id"`
}

// handleStartSession begins streaming on a created session.
// POST /streaming/start
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionIDBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, "session_id must not be empty")
		return
	}

	ctx := log.ContextWithSessionID(r.Context(), req.SessionID)
	if _, err := s.registry.Transition(ctx, req.SessionID, session.StateConnecting); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	if err := s.upstream(func() error {
		return s.client.StartSession(ctx, req.SessionID)
	}); err != nil {
		if _, ferr := s.registry.Transition(ctx, req.SessionID, session.StateFailed); ferr != nil {
			log.FromContext(ctx).Warn().Err(ferr).Msg("failed to mark session failed")
		}
		respondUpstreamError(w, r, err)
		return
	}

	if _, err := s.registry.Transition(ctx, req.SessionID, session.StateConnected); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// handleCloseSession stops a session upstream and locally.
// POST /streaming/sessions/{sessionID}/close
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := log.ContextWithSessionID(r.Context(), sessionID)

	if _, err := s.registry.Transition(ctx, sessionID, session.StateClosing); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	if err := s.upstream(func() error {
		return s.client.CloseSession(ctx, sessionID)
	}); err != nil && !errors.Is(err, heygen.ErrNotFound) {
		// A session unknown upstream is already gone; anything else
		// leaves the record in CLOSING for the sweeper to retry.
		respondUpstreamError(w, r, err)
		return
	}

	if _, err := s.registry.Transition(ctx, sessionID, session.StateClosed); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// handleKeepAlive resets the idle countdown locally and upstream.
// POST /streaming/sessions/{sessionID}/keepalive
func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := log.ContextWithSessionID(r.Context(), sessionID)

	if _, err := s.registry.Touch(ctx, sessionID); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	var result *heygen.KeepAliveResult
	err := s.upstream(func() error {
		var callErr error
		result, callErr = s.client.KeepAlive(ctx, sessionID)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":    result.Code,
		"message": result.Message,
	})
}

// handleInterruptTask interrupts the avatar's current speech.
// POST /streaming/sessions/{sessionID}/interrupt
func (s *Server) handleInterruptTask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := log.ContextWithSessionID(r.Context(), sessionID)

	if err := s.upstream(func() error {
		return s.client.InterruptTask(ctx, sessionID)
	}); err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "interrupt sent",
	})
}

type createTokenBody struct {
	ExpiresIn int `json:"expires_in"`
}

// handleCreateToken mints a session-scoped access token.
// POST /streaming/sessions/{sessionID}/tokens
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := log.ContextWithSessionID(r.Context(), sessionID)

	var req createTokenBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ExpiresIn == 0 {
		req.ExpiresIn = heygen.TokenExpiryDefault
	}

	if _, err := s.registry.Get(ctx, sessionID); err != nil {
		s.respondRegistryError(w, r, err)
		return
	}

	var token string
	err := s.upstream(func() error {
		var callErr error
		token, callErr = s.client.CreateSessionToken(ctx, sessionID, req.ExpiresIn)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_in": req.ExpiresIn,
	})
}

// handleActiveSessions lists sessions the upstream reports active.
// GET /streaming/sessions/active
func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []heygen.SessionInfo
	err := s.upstream(func() error {
		var callErr error
		sessions, callErr = s.client.ListActiveSessions(r.Context())
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleSessionHistory lists completed sessions with pagination.
// GET /streaming/sessions/history
func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}

	var (
		entries    []heygen.SessionHistoryInfo
		pagination *heygen.Pagination
	)
	err = s.upstream(func() error {
		var callErr error
		entries, pagination, callErr = s.client.SessionHistory(r.Context(), q)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":   entries,
		"pagination": pagination,
	})
}

func parseHistoryQuery(r *http.Request) (heygen.HistoryQuery, error) {
	var q heygen.HistoryQuery
	var err error

	if q.StartTime, err = queryInt64(r, "start_time"); err != nil {
		return q, err
	}
	if q.EndTime, err = queryInt64(r, "end_time"); err != nil {
		return q, err
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		return q, err
	}
	offset, err := queryInt64(r, "offset")
	if err != nil {
		return q, err
	}
	q.Limit = int(limit)
	q.Offset = int(offset)
	return q, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

// respondRegistryError maps registry and store errors.
func (s *Server) respondRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	var illegal *session.IllegalTransitionError
	switch {
	case errors.Is(err, store.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, ErrSessionNotFound)
	case errors.Is(err, session.ErrTerminal):
		RespondError(w, r, http.StatusConflict, ErrSessionConflict, err.Error())
	case errors.As(err, &illegal):
		RespondError(w, r, http.StatusConflict, ErrSessionConflict, illegal.Error())
	default:
		respondUpstreamError(w, r, err)
	}
}
