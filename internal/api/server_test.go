package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heygen-community/heygen-streaming/internal/cache"
	"github.com/heygen-community/heygen-streaming/internal/config"
	"github.com/heygen-community/heygen-streaming/internal/health"
	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/session"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

const (
	upstreamKey  = "upstream-api-key"
	gatewayToken = "gateway-token"
)

type testEnv struct {
	mock     *heygen.MockServer
	router   http.Handler
	registry *session.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock := heygen.NewMockServer(upstreamKey)
	t.Cleanup(mock.Close)

	cfg := config.AppConfig{
		APIToken: gatewayToken,
		HeyGen: config.HeyGenConfig{
			BaseURL:          mock.URL,
			APIKey:           upstreamKey,
			Timeout:          5 * time.Second,
			BreakerThreshold: 2,
			BreakerReset:     time.Minute,
		},
		Session: config.SessionConfig{Store: "memory", IdleTimeout: 2 * time.Minute},
		Cache:   config.CacheConfig{Backend: "memory", TTL: time.Minute},
	}

	client := heygen.New(mock.URL, heygen.Options{APIKey: upstreamKey, Timeout: cfg.HeyGen.Timeout})
	registry := session.NewRegistry(store.NewMemoryStore(), cfg.Session.IdleTimeout)
	c := cache.NewMemoryCache(0)
	t.Cleanup(c.Close)

	healthMgr := health.NewManager("test")
	healthMgr.RegisterChecker(&health.UpstreamChecker{Client: client})

	srv := NewServer(cfg, client, registry, c, healthMgr)
	return &testEnv{mock: mock, router: srv.Router(), registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+gatewayToken)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/streaming/sessions",
		map[string]any{"avatar_id": "avatar-1", "quality": "high"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/streaming/avatars", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	req := httptest.NewRequest(http.MethodGet, "/streaming/avatars", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProbesArePublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/streaming/sessions",
		map[string]any{"avatar_id": "avatar-1", "quality": "high"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeMap(t, rec)
	assert.NotEmpty(t, body["session_id"])
	assert.NotEmpty(t, body["url"])
	assert.NotEmpty(t, body["access_token"])

	rec = env.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSessionInvalidQuality(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/streaming/sessions",
		map[string]any{"quality": "ultra"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	assert.Equal(t, 0, env.mock.SessionCount())
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/streaming/start",
		map[string]string{"session_id": id}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "started", decodeMap(t, rec)["status"])

	rec = env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/keepalive", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(100), decodeMap(t, rec)["code"])

	rec = env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/interrupt", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/close", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", decodeMap(t, rec)["status"])
	assert.Equal(t, 0, env.mock.SessionCount())

	// Closed sessions reject further operations.
	rec = env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/keepalive", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_CONFLICT")
}

func TestStartUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/streaming/start",
		map[string]string{"session_id": "nope"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_NOT_FOUND")
}

func TestStartTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/streaming/start",
		map[string]string{"session_id": id}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/streaming/start",
		map[string]string{"session_id": id}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateToken(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/tokens",
		map[string]any{}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeMap(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, float64(heygen.TokenExpiryDefault), body["expires_in"])

	rec = env.do(t, http.MethodPost, "/streaming/sessions/"+id+"/tokens",
		map[string]any{"expires_in": 5}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTask(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/streaming/tasks",
		map[string]any{"session_id": id, "text": "  hello there  "}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeMap(t, rec)
	assert.NotEmpty(t, body["task_id"])

	rec = env.do(t, http.MethodPost, "/streaming/tasks",
		map[string]any{"session_id": id, "text": "   "}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAvatarsCached(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/streaming/avatars", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	first := decodeMap(t, rec)
	assert.Equal(t, float64(3), first["count"])

	rec = env.do(t, http.MethodGet, "/streaming/avatars", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, first, decodeMap(t, rec))
}

func TestActiveSessions(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	rec := env.do(t, http.MethodGet, "/streaming/sessions/active", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeMap(t, rec)["count"])
}

func TestSessionHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/streaming/sessions/history?limit=1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeMap(t, rec)
	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, true, pagination["has_more"])

	rec = env.do(t, http.MethodGet, "/streaming/sessions/history?limit=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledgeBaseCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/streaming/knowledge-bases",
		map[string]string{"name": "support", "opening": "hi", "prompt": "be helpful"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kbID, _ := decodeMap(t, rec)["knowledge_base_id"].(string)
	require.NotEmpty(t, kbID)

	rec = env.do(t, http.MethodGet, "/streaming/knowledge-bases", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeMap(t, rec)["count"])

	rec = env.do(t, http.MethodPut, "/streaming/knowledge-bases/"+kbID,
		map[string]string{"name": "support-v2"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "support-v2", decodeMap(t, rec)["name"])

	rec = env.do(t, http.MethodDelete, "/streaming/knowledge-bases/"+kbID, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/streaming/knowledge-bases/"+kbID, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "KNOWLEDGE_BASE_NOT_FOUND")
}

func TestKnowledgeBaseEmptyName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/streaming/knowledge-bases",
		map[string]string{"name": "  "}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCircuitBreakerOpens(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ForceStatus("/v1/streaming.list", http.StatusInternalServerError)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/streaming/sessions/active", nil, true)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "UPSTREAM_ERROR")
	}

	rec := env.do(t, http.MethodGet, "/streaming/sessions/active", nil, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CIRCUIT_OPEN")
}

func TestUpstreamRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ForceStatus("/v1/streaming/avatar.list", http.StatusTooManyRequests)

	rec := env.do(t, http.MethodGet, "/streaming/avatars", nil, true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestUpstreamAuthFailureSurfaces401(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ForceStatus("/v1/streaming/avatar.list", http.StatusUnauthorized)

	rec := env.do(t, http.MethodGet, "/streaming/avatars", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_AUTH_FAILED")
}

func TestUpstreamServerStatusPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ForceStatus("/v1/streaming/avatar.list", http.StatusBadGateway)

	rec := env.do(t, http.MethodGet, "/streaming/avatars", nil, true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_ERROR")
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/streaming/sessions",
		bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+gatewayToken)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}
