package heygen

import (
	"context"
	"encoding/json"
	"net/url"
)

// CreateKnowledgeBase creates a knowledge base for chat-mode sessions.
func (c *Client) CreateKnowledgeBase(ctx context.Context, req *KnowledgeBaseRequest) (*KnowledgeBaseInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "knowledge_base.create", Err: err}
	}

	data, err := c.post(ctx, "/v1/streaming/knowledge_base.create", "knowledge_base.create", req)
	if err != nil {
		return nil, err
	}
	return decodeKnowledgeBase(data, "knowledge_base.create")
}

// ListKnowledgeBases returns all knowledge bases for the account.
func (c *Client) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBaseInfo, error) {
	data, err := c.get(ctx, "/v1/streaming/knowledge_base.list", "knowledge_base.list")
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []KnowledgeBaseInfo `json:"list"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "knowledge_base.list", Err: err}
	}
	return payload.List, nil
}

// UpdateKnowledgeBase updates the name, opening or prompt of a knowledge base.
func (c *Client) UpdateKnowledgeBase(ctx context.Context, kbID string, req *KnowledgeBaseRequest) (*KnowledgeBaseInfo, error) {
	if kbID == "" {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "knowledge_base.update", Body: "empty knowledge_base_id"}
	}
	if err := req.Validate(); err != nil {
		return nil, &APIError{Sentinel: ErrValidation, Operation: "knowledge_base.update", Err: err}
	}

	data, err := c.post(ctx, "/v1/streaming/knowledge_base/"+url.PathEscape(kbID), "knowledge_base.update", req)
	if err != nil {
		return nil, err
	}
	return decodeKnowledgeBase(data, "knowledge_base.update")
}

// DeleteKnowledgeBase removes a knowledge base.
func (c *Client) DeleteKnowledgeBase(ctx context.Context, kbID string) error {
	if kbID == "" {
		return &APIError{Sentinel: ErrValidation, Operation: "knowledge_base.delete", Body: "empty knowledge_base_id"}
	}
	_, err := c.post(ctx, "/v1/streaming/knowledge_base/"+url.PathEscape(kbID)+"/delete", "knowledge_base.delete", nil)
	return err
}

func decodeKnowledgeBase(data json.RawMessage, operation string) (*KnowledgeBaseInfo, error) {
	var info KnowledgeBaseInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: operation, Err: err}
	}
	if info.KnowledgeBaseID == "" {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: operation, Body: "missing knowledge_base_id"}
	}
	return &info, nil
}
