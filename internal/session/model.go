// Package session tracks the lifecycle of streaming sessions created
// through the gateway.
package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrTerminal is returned when an operation targets a session that
// already reached a final state.
var ErrTerminal = errors.New("session is in a terminal state")

// State is the client-visible lifecycle of a tracked session.
// It is intentionally coarse-grained and stable.
type State string

const (
	StateNew        State = "NEW"
	StateConnecting State = "CONNECTING"
	StateConnected  State = "CONNECTED"
	StateClosing    State = "CLOSING"
	StateClosed     State = "CLOSED"
	StateExpired    State = "EXPIRED"
	StateFailed     State = "FAILED"
)

// IsTerminal returns true if the state is a final state.
func (s State) IsTerminal() bool {
	switch s {
	case StateClosed, StateExpired, StateFailed:
		return true
	}
	return false
}

// legalTransitions is the single source of truth for lifecycle moves.
var legalTransitions = map[State][]State{
	StateNew:        {StateConnecting, StateClosing, StateExpired, StateFailed},
	StateConnecting: {StateConnected, StateClosing, StateExpired, StateFailed},
	StateConnected:  {StateClosing, StateExpired, StateFailed},
	StateClosing:    {StateClosed, StateFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError reports a rejected lifecycle move.
type IllegalTransitionError struct {
	SessionID string
	From, To  State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("session %s: illegal transition %s -> %s", e.SessionID, e.From, e.To)
}

// Record is the locally tracked view of a streaming session.
type Record struct {
	SessionID       string    `json:"session_id"`
	AvatarID        string    `json:"avatar_id,omitempty"`
	KnowledgeBaseID string    `json:"knowledge_base_id,omitempty"`
	Quality         string    `json:"quality,omitempty"`
	State           State     `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastKeepAlive   time.Time `json:"last_keep_alive,omitempty"`
	IdleDeadline    time.Time `json:"idle_deadline"`
	ClosedAt        time.Time `json:"closed_at,omitempty"`
}
