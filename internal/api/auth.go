package api

import (
	"net/http"

	"github.com/heygen-community/heygen-streaming/internal/auth"
	"github.com/heygen-community/heygen-streaming/internal/log"
)

// authMiddleware enforces gateway API token authentication. With no
// token configured the gateway fails closed unless anonymous access
// was explicitly enabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.APIToken

		if token == "" {
			if s.cfg.AuthAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			log.FromContext(r.Context()).Error().
				Str(log.FieldEvent, "auth.fail_closed").
				Msg("HGS_API_TOKEN not set and HGS_AUTH_ANONYMOUS != true, denying access")
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		reqToken := auth.ExtractToken(r)
		logger := log.WithComponentFromContext(r.Context(), "auth")

		if reqToken == "" {
			logger.Warn().Str(log.FieldEvent, "auth.missing_token").Msg("authorization header missing")
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		if !auth.AuthorizeToken(reqToken, token) {
			logger.Warn().Str(log.FieldEvent, "auth.invalid_token").Msg("invalid api token")
			RespondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
