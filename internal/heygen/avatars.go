package heygen

import (
	"context"
	"encoding/json"
)

// ListAvatars retrieves the public and custom interactive avatars available
// to the API key.
func (c *Client) ListAvatars(ctx context.Context) ([]AvatarInfo, error) {
	data, err := c.get(ctx, "/v1/streaming/avatar.list", "avatar.list")
	if err != nil {
		return nil, err
	}

	// data is either a bare array or {"avatars": [...]}.
	var avatars []AvatarInfo
	if err := json.Unmarshal(data, &avatars); err == nil {
		return avatars, nil
	}

	var payload struct {
		Avatars []AvatarInfo `json:"avatars"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "avatar.list", Err: err}
	}
	return payload.Avatars, nil
}
