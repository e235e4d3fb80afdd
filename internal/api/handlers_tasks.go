package api

import (
	"errors"
	"net/http"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/session"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

// handleSendTask sends text for the avatar to speak or answer.
// POST /streaming/tasks
func (s *Server) handleSendTask(w http.ResponseWriter, r *http.Request) {
	var req heygen.SendTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}

	ctx := log.ContextWithSessionID(r.Context(), req.SessionID)

	// A task counts as activity; untracked sessions still pass
	// through so tasks work for sessions created outside the gateway.
	if _, err := s.registry.Touch(ctx, req.SessionID); err != nil {
		if errors.Is(err, session.ErrTerminal) {
			s.respondRegistryError(w, r, err)
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.FromContext(ctx).Warn().Err(err).Msg("task touch failed")
		}
	}

	var result *heygen.TaskResult
	err := s.upstream(func() error {
		var callErr error
		result, callErr = s.client.SendTask(ctx, &req)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	log.FromContext(ctx).Info().
		Str(log.FieldTaskID, result.TaskID).
		Float64("duration_ms", result.DurationMS).
		Msg("task dispatched")

	writeJSON(w, http.StatusOK, result)
}
