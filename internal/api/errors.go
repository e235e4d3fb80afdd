package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/log"
	"github.com/heygen-community/heygen-streaming/internal/resilience"
	"github.com/heygen-community/heygen-streaming/internal/session"
)

// APIError is a stable machine-readable error for gateway responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized = &APIError{
		Code:    "UNAUTHORIZED",
		Message: "Authentication required",
	}
	ErrInvalidInput = &APIError{
		Code:    "INVALID_INPUT",
		Message: "Request validation failed",
	}
	ErrSessionNotFound = &APIError{
		Code:    "SESSION_NOT_FOUND",
		Message: "Session not found",
	}
	ErrKnowledgeBaseNotFound = &APIError{
		Code:    "KNOWLEDGE_BASE_NOT_FOUND",
		Message: "Knowledge base not found",
	}
	ErrSessionConflict = &APIError{
		Code:    "SESSION_CONFLICT",
		Message: "Session is in a state that does not allow this operation",
	}
	ErrRateLimited = &APIError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "Upstream rate limit exceeded, retry later",
	}
	ErrUpstreamAuth = &APIError{
		Code:    "UPSTREAM_AUTH_FAILED",
		Message: "Upstream rejected the configured API key",
	}
	ErrUpstreamError = &APIError{
		Code:    "UPSTREAM_ERROR",
		Message: "Upstream request failed",
	}
	ErrUpstreamUnavailable = &APIError{
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: "Upstream service unreachable",
	}
	ErrCircuitOpen = &APIError{
		Code:    "CIRCUIT_OPEN",
		Message: "Upstream temporarily disabled after repeated failures",
	}
	ErrInternal = &APIError{
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred",
	}
)

// errorBody is the wire shape of gateway error responses.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// writeJSON writes a JSON response. Encoding failures are logged; the
// status line is already on the wire at that point.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().Err(err).Int(log.FieldStatus, code).Msg("failed to encode JSON response")
	}
}

// RespondError sends a structured error with the request's
// correlation ID attached.
func RespondError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError, details ...any) {
	body := errorBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if len(details) > 0 {
		body.Details = details[0]
	}
	writeJSON(w, statusCode, body)
}

// upstreamStatus passes a 5xx upstream status through to the caller,
// falling back to 500 when the status is unknown.
func upstreamStatus(err error) int {
	var upstream *heygen.APIError
	if errors.As(err, &upstream) && upstream.Status >= http.StatusInternalServerError {
		return upstream.Status
	}
	return http.StatusInternalServerError
}

// respondUpstreamError maps client and session errors to gateway
// responses. Validation details from the upstream client are surfaced
// so callers can fix their request.
func respondUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var illegal *session.IllegalTransitionError
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		RespondError(w, r, http.StatusServiceUnavailable, ErrCircuitOpen)
	case errors.Is(err, heygen.ErrAuth):
		RespondError(w, r, http.StatusUnauthorized, ErrUpstreamAuth)
	case errors.Is(err, heygen.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, ErrSessionNotFound)
	case errors.Is(err, heygen.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
	case errors.Is(err, heygen.ErrRateLimited):
		RespondError(w, r, http.StatusTooManyRequests, ErrRateLimited)
	case errors.Is(err, heygen.ErrTimeout), errors.Is(err, heygen.ErrUnavailable):
		RespondError(w, r, http.StatusServiceUnavailable, ErrUpstreamUnavailable)
	case errors.Is(err, heygen.ErrServer):
		RespondError(w, r, upstreamStatus(err), ErrUpstreamError)
	case errors.Is(err, heygen.ErrBadResponse):
		RespondError(w, r, http.StatusBadGateway, ErrUpstreamError)
	case errors.As(err, &illegal):
		RespondError(w, r, http.StatusConflict, ErrSessionConflict, illegal.Error())
	default:
		log.FromContext(r.Context()).Error().Err(err).Msg("unexpected handler error")
		RespondError(w, r, http.StatusInternalServerError, ErrInternal)
	}
}
