package heygen

import (
	"context"
	"encoding/json"
)

// SendTask sends a text task to an Interactive Avatar, prompting it to speak
// the text either synchronously or asynchronously.
func (c *Client) SendTask(ctx context.Context, req *SendTaskRequest) (*TaskResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "streaming.task", Err: err}
	}
	if req.TaskMode == "" {
		req.TaskMode = TaskModeSync
	}
	if req.TaskType == "" {
		req.TaskType = TaskTypeRepeat
	}

	data, err := c.post(ctx, "/v1/streaming.task", "streaming.task", req)
	if err != nil {
		return nil, err
	}

	var result TaskResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "streaming.task", Err: err}
	}
	return &result, nil
}

// InterruptTask interrupts the avatar's current speech. If the avatar is not
// speaking the interrupt has no effect.
func (c *Client) InterruptTask(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &APIError{Sentinel: ErrValidation, Operation: "streaming.interrupt", Body: "empty session_id"}
	}
	_, err := c.post(ctx, "/v1/streaming.interrupt", "streaming.interrupt", sessionRef{SessionID: sessionID})
	return err
}
