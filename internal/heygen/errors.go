package heygen

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuth        = errors.New("heygen: invalid or missing API key")
	ErrNotFound    = errors.New("heygen: resource not found")
	ErrValidation  = errors.New("heygen: request rejected as invalid")
	ErrRateLimited = errors.New("heygen: rate limit exceeded")
	ErrServer      = errors.New("heygen: upstream internal error (5xx)")
	ErrUnavailable = errors.New("heygen: host unreachable or transport failure")
	ErrBadResponse = errors.New("heygen: invalid response format or malformed data")
	ErrTimeout     = errors.New("heygen: request timed out")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("heygen: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
