package heygen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// envelope is the response wrapper used by all streaming endpoints:
// {"code": 100, "message": "Success", "data": ...}. Code 100 means success.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const codeSuccess = 100

// TaskMode controls whether the avatar speaks synchronously.
type TaskMode string

const (
	TaskModeSync  TaskMode = "sync"
	TaskModeAsync TaskMode = "async"
)

// TaskType selects between verbatim repetition and knowledge-base chat.
type TaskType string

const (
	TaskTypeRepeat TaskType = "repeat"
	TaskTypeChat   TaskType = "chat"
)

// VoiceSettings tunes the avatar voice for a session.
type VoiceSettings struct {
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Emotion string  `json:"emotion,omitempty"`
}

// NewSessionRequest configures streaming.new.
type NewSessionRequest struct {
	AvatarID            string         `json:"avatar_id,omitempty"`
	Quality             string         `json:"quality,omitempty"` // low | medium | high
	Voice               *VoiceSettings `json:"voice,omitempty"`
	KnowledgeBaseID     string         `json:"knowledge_base_id,omitempty"`
	DisableIdleTimeout  bool           `json:"disable_idle_timeout,omitempty"`
	ActivityIdleTimeout int            `json:"activity_idle_timeout,omitempty"` // seconds, 30..3600
}

// Validate enforces the request constraints the upstream documents.
func (r *NewSessionRequest) Validate() error {
	switch r.Quality {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("quality must be low, medium or high (got %q)", r.Quality)
	}
	if r.ActivityIdleTimeout != 0 && (r.ActivityIdleTimeout < 30 || r.ActivityIdleTimeout > 3600) {
		return fmt.Errorf("activity_idle_timeout must be within [30, 3600] seconds (got %d)", r.ActivityIdleTimeout)
	}
	return nil
}

// SessionDetail is the payload returned by streaming.new.
type SessionDetail struct {
	SessionID            string `json:"session_id"`
	URL                  string `json:"url"`
	AccessToken          string `json:"access_token"`
	RealtimeEndpoint     string `json:"realtime_endpoint"`
	SessionDurationLimit int    `json:"session_duration_limit"`
	IsPaid               bool   `json:"is_paid"`
}

// SendTaskRequest configures streaming.task.
type SendTaskRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	TaskMode  TaskMode `json:"task_mode,omitempty"`
	TaskType  TaskType `json:"task_type,omitempty"`
}

// Validate trims the text and rejects empty or whitespace-only input.
func (r *SendTaskRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session_id must not be empty")
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return fmt.Errorf("text must not be empty or whitespace")
	}
	switch r.TaskMode {
	case "", TaskModeSync, TaskModeAsync:
	default:
		return fmt.Errorf("task_mode must be sync or async (got %q)", r.TaskMode)
	}
	switch r.TaskType {
	case "", TaskTypeRepeat, TaskTypeChat:
	default:
		return fmt.Errorf("task_type must be repeat or chat (got %q)", r.TaskType)
	}
	return nil
}

// TaskResult is the payload returned by streaming.task.
type TaskResult struct {
	DurationMS float64 `json:"duration_ms"`
	TaskID     string  `json:"task_id"`
}

// AvatarInfo describes one interactive avatar.
type AvatarInfo struct {
	AvatarID  string `json:"avatar_id"`
	CreatedAt int64  `json:"created_at"`
	IsPublic  bool   `json:"is_public"`
	Status    string `json:"status"`
}

// SessionInfo describes one currently active session.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"` // new | connecting | connected
	CreatedAt int64  `json:"created_at"`
}

// SessionHistoryInfo describes one historical session entry.
type SessionHistoryInfo struct {
	SessionID       string `json:"session_id"`
	CreatedAt       int64  `json:"created_at"`
	EndedAt         int64  `json:"ended_at,omitempty"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
	AvatarID        string `json:"avatar_id,omitempty"`
	VoiceName       string `json:"voice_name,omitempty"`
}

// Pagination describes list windows for history queries.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// HistoryQuery filters the session history listing.
type HistoryQuery struct {
	StartTime int64 // Unix seconds, 0 = unbounded
	EndTime   int64
	Limit     int // defaults to 10
	Offset    int
}

// KnowledgeBaseInfo describes a knowledge base attached to chat sessions.
type KnowledgeBaseInfo struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"` // ACTIVE | PROCESSING | ERROR
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
	DocumentCount   int    `json:"document_count"`
}

// KnowledgeBaseRequest creates or updates a knowledge base.
type KnowledgeBaseRequest struct {
	Name    string `json:"name"`
	Opening string `json:"opening,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

// Validate rejects an empty name.
func (r *KnowledgeBaseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	return nil
}
