// Package heygen implements the upstream HeyGen Interactive Avatar
// streaming API client.
package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	xlog "github.com/heygen-community/heygen-streaming/internal/log"
)

const (
	headerAPIKey     = "X-Api-Key"
	defaultUserAgent = "heygen-streaming/1.0"

	// Responses larger than this are truncated before being attached to
	// errors; upstream error bodies are small JSON envelopes.
	maxErrorBody = 2048
)

// Options configures a Client.
type Options struct {
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
	// Limiter throttles outgoing requests; nil disables throttling.
	Limiter *rate.Limiter
}

// Client talks to the HeyGen streaming API.
type Client struct {
	base      string
	apiKey    string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// New creates a client for the given base URL.
func New(base string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		apiKey:    opts.APIKey,
		userAgent: userAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter: opts.Limiter,
	}
}

func (c *Client) loggerFor(ctx context.Context) *zerolog.Logger {
	return xlog.WithComponentFromContext(ctx, "heygen")
}

// get issues a GET request and returns the envelope data on success.
func (c *Client) get(ctx context.Context, path, operation string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, operation, nil)
}

// post issues a POST request with a JSON body and returns the envelope data.
func (c *Client) post(ctx context.Context, path, operation string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, operation, body)
}

func (c *Client) do(ctx context.Context, method, path, operation string, body any) (json.RawMessage, error) {
	env, err := c.doEnvelope(ctx, method, path, operation, body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// doEnvelope issues a request and returns the decoded response envelope,
// for callers that need the upstream code and message alongside the data.
func (c *Client) doEnvelope(ctx context.Context, method, path, operation string, body any) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Sentinel: ErrTimeout, Operation: operation, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Sentinel: ErrBadResponse, Operation: operation, Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, &APIError{Sentinel: ErrUnavailable, Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		observeRequest(operation, outcomeTransport, time.Since(start))
		return nil, c.transportError(ctx, operation, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		observeRequest(operation, outcomeTransport, time.Since(start))
		return nil, &APIError{Sentinel: ErrUnavailable, Operation: operation, Status: res.StatusCode, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		observeRequest(operation, outcomeFor(res.StatusCode), time.Since(start))
		return nil, c.statusError(ctx, operation, res.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		observeRequest(operation, outcomeDecode, time.Since(start))
		c.loggerFor(ctx).Error().Err(err).
			Str(xlog.FieldEvent, "heygen.decode").
			Str(xlog.FieldOperation, operation).
			Msg("failed to decode upstream response")
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: operation, Status: res.StatusCode, Err: err}
	}

	// Some endpoints answer a bare data object without the code/message
	// wrapper; treat an absent code as success.
	if env.Code != 0 && env.Code != codeSuccess {
		observeRequest(operation, outcomeUpstream, time.Since(start))
		return nil, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: operation,
			Status:    res.StatusCode,
			Body:      fmt.Sprintf("code=%d message=%s", env.Code, env.Message),
		}
	}

	observeRequest(operation, outcomeSuccess, time.Since(start))
	if len(env.Data) == 0 {
		env.Data = raw
	}
	return &env, nil
}

func (c *Client) transportError(ctx context.Context, operation string, err error) error {
	sentinel := ErrUnavailable
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		sentinel = ErrTimeout
	}
	c.loggerFor(ctx).Warn().Err(err).
		Str(xlog.FieldEvent, "heygen.transport").
		Str(xlog.FieldOperation, operation).
		Msg("upstream request failed")
	return &APIError{Sentinel: sentinel, Operation: operation, Err: err}
}

func (c *Client) statusError(ctx context.Context, operation string, status int, body []byte) error {
	sentinel := ErrServer
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrAuth
	case status == http.StatusNotFound:
		sentinel = ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		sentinel = ErrValidation
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status >= 500:
		sentinel = ErrServer
	default:
		sentinel = ErrBadResponse
	}

	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxErrorBody {
		trimmed = trimmed[:maxErrorBody]
	}

	c.loggerFor(ctx).Warn().
		Str(xlog.FieldEvent, "heygen.status").
		Str(xlog.FieldOperation, operation).
		Int(xlog.FieldStatus, status).
		Msg("upstream returned error status")

	return &APIError{Sentinel: sentinel, Operation: operation, Status: status, Body: trimmed}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
