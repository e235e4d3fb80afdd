package api

import (
	"encoding/json"
	"net/http"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/log"
)

const avatarCacheKey = "catalog:avatars"

// handleListAvatars lists interactive avatars, serving the upstream
// catalog from cache while it is fresh.
// GET /streaming/avatars
func (s *Server) handleListAvatars(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cache.Get(avatarCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	var avatars []heygen.AvatarInfo
	err := s.upstream(func() error {
		var callErr error
		avatars, callErr = s.client.ListAvatars(r.Context())
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"avatars": avatars,
		"count":   len(avatars),
	})
	if err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("failed to encode avatar catalog")
		RespondError(w, r, http.StatusInternalServerError, ErrInternal)
		return
	}
	s.cache.Set(avatarCacheKey, body, s.cfg.Cache.TTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
