package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across gateway spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	SessionIDKey = "streaming.session_id"
	AvatarIDKey  = "streaming.avatar_id"
	TaskTypeKey  = "streaming.task_type"
	TaskModeKey  = "streaming.task_mode"

	UpstreamOperationKey = "upstream.operation"
	UpstreamStatusKey    = "upstream.status_code"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session lifecycle span attributes.
func SessionAttributes(sessionID, avatarID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(AvatarIDKey, avatarID),
	}
}

// TaskAttributes creates task dispatch span attributes.
func TaskAttributes(sessionID, taskType, taskMode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(TaskTypeKey, taskType),
		attribute.String(TaskModeKey, taskMode),
	}
}
