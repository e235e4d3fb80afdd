package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HEYGEN_API_KEY", "test-key")
	t.Setenv("HGS_API_TOKEN", "gateway-token")
}

func TestLoadDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := NewLoader("", "v0.0.0-test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://api.heygen.com", cfg.HeyGen.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HeyGen.Timeout)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 2*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "v0.0.0-test", cfg.Version)
}

func TestEnvOverridesFile(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7070"
log_level: debug
heygen:
  timeout: 5s
session:
  store: sqlite
  path: /tmp/sessions.db
`), 0o600))

	t.Setenv("HGS_LISTEN", ":6060")

	cfg, err := NewLoader(path, "v1").Load()
	require.NoError(t, err)

	// ENV wins over file; file wins over defaults.
	assert.Equal(t, ":6060", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.HeyGen.Timeout)
	assert.Equal(t, "sqlite", cfg.Session.Store)
}

func TestStrictFileParsing(t *testing.T) {
	validEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listne_addr: oops\n"), 0o600))

	_, err := NewLoader(path, "v1").Load()
	require.Error(t, err)
}

func TestValidateRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("HGS_API_TOKEN", "gateway-token")
	t.Setenv("HEYGEN_API_KEY", "")

	_, err := NewLoader("", "v1").Load()
	require.ErrorContains(t, err, "HEYGEN_API_KEY")
}

func TestValidateFailClosedAuth(t *testing.T) {
	t.Setenv("HEYGEN_API_KEY", "test-key")
	t.Setenv("HGS_API_TOKEN", "")

	_, err := NewLoader("", "v1").Load()
	require.ErrorContains(t, err, "HGS_AUTH_ANONYMOUS")

	t.Setenv("HGS_AUTH_ANONYMOUS", "true")
	_, err = NewLoader("", "v1").Load()
	require.NoError(t, err)
}

func TestValidateStoreRequiresPath(t *testing.T) {
	validEnv(t)
	t.Setenv("HGS_SESSION_STORE", "badger")

	_, err := NewLoader("", "v1").Load()
	require.ErrorContains(t, err, "session.path")

	t.Setenv("HGS_SESSION_PATH", t.TempDir())
	_, err = NewLoader("", "v1").Load()
	require.NoError(t, err)
}

func TestValidateUnknownCacheBackend(t *testing.T) {
	validEnv(t)
	t.Setenv("HGS_CACHE_BACKEND", "memcached")

	_, err := NewLoader("", "v1").Load()
	require.ErrorContains(t, err, "cache backend")
}
