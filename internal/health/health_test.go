package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/session/store"
)

type staticChecker struct {
	name   string
	result CheckResult
}

func (c staticChecker) Name() string                      { return c.name }
func (c staticChecker) Check(context.Context) CheckResult { return c.result }

type fakeLister struct {
	avatars []heygen.AvatarInfo
	err     error
}

func (f fakeLister) ListAvatars(context.Context) ([]heygen.AvatarInfo, error) {
	return f.avatars, f.err
}

func TestHealthAlways200(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(staticChecker{"failing", CheckResult{Status: StatusUnhealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Checks)
}

func TestHealthVerboseIncludesChecks(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(staticChecker{"degraded", CheckResult{Status: StatusDegraded}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Contains(t, resp.Checks, "degraded")
}

func TestReadyDependsOnCheckers(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(staticChecker{"ok", CheckResult{Status: StatusHealthy}})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(staticChecker{"broken", CheckResult{Status: StatusUnhealthy, Error: "down"}})
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestUpstreamChecker(t *testing.T) {
	c := &UpstreamChecker{Client: fakeLister{avatars: []heygen.AvatarInfo{{AvatarID: "a"}}}}
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Contains(t, res.Message, "1 avatars")

	c = &UpstreamChecker{Client: fakeLister{err: errors.New("connection refused")}}
	res = c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "connection refused")
}

func TestStoreChecker(t *testing.T) {
	c := &StoreChecker{Store: store.NewMemoryStore()}
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
}
