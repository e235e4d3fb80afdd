package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: "grpc",
	})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "kafka",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/streaming/sessions", "/streaming/sessions", 201)
	assert.Contains(t, attrs, attribute.String(HTTPMethodKey, "POST"))
	assert.Contains(t, attrs, attribute.Int(HTTPStatusCodeKey, 201))
}

func TestSessionAttributes(t *testing.T) {
	attrs := SessionAttributes("sess-1", "avatar-1")
	assert.Contains(t, attrs, attribute.String(SessionIDKey, "sess-1"))
	assert.Contains(t, attrs, attribute.String(AvatarIDKey, "avatar-1"))
}
