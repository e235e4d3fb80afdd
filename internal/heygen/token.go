package heygen

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// Session token expiry bounds in seconds.
	TokenExpiryMin     = 60
	TokenExpiryMax     = 86400
	TokenExpiryDefault = 3600
)

type createTokenRequest struct {
	SessionID string `json:"session_id"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

// CreateSessionToken creates a short-lived token for a streaming session.
// expiresIn is clamped to [TokenExpiryMin, TokenExpiryMax]; 0 selects the
// default of one hour.
func (c *Client) CreateSessionToken(ctx context.Context, sessionID string, expiresIn int) (string, error) {
	if sessionID == "" {
		return "", &APIError{Sentinel: ErrValidation, Operation: "streaming.create_token", Body: "empty session_id"}
	}
	if expiresIn == 0 {
		expiresIn = TokenExpiryDefault
	}
	if expiresIn < TokenExpiryMin || expiresIn > TokenExpiryMax {
		return "", &APIError{
			Sentinel:  ErrValidation,
			Operation: "streaming.create_token",
			Body:      fmt.Sprintf("expires_in must be within [%d, %d] seconds", TokenExpiryMin, TokenExpiryMax),
		}
	}

	data, err := c.post(ctx, "/v1/streaming.create_token", "streaming.create_token", createTokenRequest{
		SessionID: sessionID,
		ExpiresIn: expiresIn,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &APIError{Sentinel: ErrBadResponse, Operation: "streaming.create_token", Err: err}
	}
	if payload.Token == "" {
		return "", &APIError{Sentinel: ErrBadResponse, Operation: "streaming.create_token", Body: "missing token"}
	}
	return payload.Token, nil
}
