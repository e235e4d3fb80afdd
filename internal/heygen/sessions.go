package heygen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// NewSession creates a new streaming session.
func (c *Client) NewSession(ctx context.Context, req *NewSessionRequest) (*SessionDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "streaming.new", Err: err}
	}

	data, err := c.post(ctx, "/v1/streaming.new", "streaming.new", req)
	if err != nil {
		return nil, err
	}

	var detail SessionDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "streaming.new", Err: err}
	}
	if detail.SessionID == "" {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "streaming.new", Body: "missing session_id"}
	}
	return &detail, nil
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

// StartSession activates an existing streaming session, establishing the
// connection between the client and the Interactive Avatar.
func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &APIError{Sentinel: ErrValidation, Operation: "streaming.start", Body: "empty session_id"}
	}
	_, err := c.post(ctx, "/v1/streaming.start", "streaming.start", sessionRef{SessionID: sessionID})
	return err
}

// CloseSession terminates an active streaming session.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &APIError{Sentinel: ErrValidation, Operation: "streaming.stop", Body: "empty session_id"}
	}
	_, err := c.post(ctx, "/v1/streaming.stop", "streaming.stop", sessionRef{SessionID: sessionID})
	return err
}

// KeepAliveResult reports the upstream acknowledgement of a keep-alive.
type KeepAliveResult struct {
	Code    int
	Message string
}

// KeepAlive resets the idle-timeout countdown for an active session.
func (c *Client) KeepAlive(ctx context.Context, sessionID string) (*KeepAliveResult, error) {
	if sessionID == "" {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "streaming.keep_alive", Body: "empty session_id"}
	}
	env, err := c.doEnvelope(ctx, http.MethodPost, "/v1/streaming.keep_alive", "streaming.keep_alive", sessionRef{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	result := &KeepAliveResult{Code: env.Code, Message: env.Message}
	// Bare-data responses carry no code; the 2xx status already means success.
	if result.Code == 0 {
		result.Code = codeSuccess
	}
	return result, nil
}

// ListActiveSessions returns the sessions currently active for the API key.
func (c *Client) ListActiveSessions(ctx context.Context) ([]SessionInfo, error) {
	data, err := c.get(ctx, "/v1/streaming.list", "streaming.list")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Sessions []SessionInfo `json:"sessions"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "streaming.list", Err: err}
	}
	return payload.Sessions, nil
}

// SessionHistory returns a paginated view of past sessions.
func (c *Client) SessionHistory(ctx context.Context, q HistoryQuery) ([]SessionHistoryInfo, *Pagination, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.StartTime != 0 && q.EndTime != 0 && q.EndTime < q.StartTime {
		return nil, nil, &APIError{
			Sentinel:  ErrValidation,
			Operation: "streaming.list_history",
			Body:      fmt.Sprintf("end_time %d before start_time %d", q.EndTime, q.StartTime),
		}
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.StartTime != 0 {
		params.Set("start_time", strconv.FormatInt(q.StartTime, 10))
	}
	if q.EndTime != 0 {
		params.Set("end_time", strconv.FormatInt(q.EndTime, 10))
	}

	data, err := c.get(ctx, "/v1/streaming.list_history?"+params.Encode(), "streaming.list_history")
	if err != nil {
		return nil, nil, err
	}

	var payload struct {
		Sessions []SessionHistoryInfo `json:"sessions"`
		Total    int                  `json:"total"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, &APIError{Sentinel: ErrBadResponse, Operation: "streaming.list_history", Err: err}
	}

	page := &Pagination{
		Total:   payload.Total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: q.Offset+len(payload.Sessions) < payload.Total,
	}
	return payload.Sessions, page, nil
}
