package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test-svc", Version: "v1.2.3"})
	defer Configure(Config{})

	l := WithComponent("unit")
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["service"] != "test-svc" {
		t.Errorf("service = %v, want test-svc", entry["service"])
	}
	if entry["version"] != "v1.2.3" {
		t.Errorf("version = %v, want v1.2.3", entry["version"])
	}
	if entry["component"] != "unit" {
		t.Errorf("component = %v, want unit", entry["component"])
	}
}

func TestFromContextCarriesCorrelationIDs(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	defer Configure(Config{})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	FromContext(ctx).Info().Msg("correlated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry[FieldRequestID])
	}
	if entry[FieldSessionID] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", entry[FieldSessionID])
	}
}

func TestWithComponentFromContextChains(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	defer Configure(Config{})

	ctx := ContextWithRequestID(context.Background(), "req-2")
	WithComponentFromContext(ctx, "chained").Warn().Msg("component and correlation")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry[FieldComponent] != "chained" {
		t.Errorf("component = %v, want chained", entry[FieldComponent])
	}
	if entry[FieldRequestID] != "req-2" {
		t.Errorf("request_id = %v, want req-2", entry[FieldRequestID])
	}
}

func TestFromContextWithoutIDsReturnsBase(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
