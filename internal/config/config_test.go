package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"STMC_API_URL", "STMC_AUTH_URL", "STMC_LOG_LEVEL", "DEBUG"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, c.APIURL)
	assert.Equal(t, DefaultAuthURL, c.AuthURL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Zero(t, c.RequestTimeout)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://tasks.example.com/api/tasks
request_timeout: 15s
log_level: warn
data_dir: /tmp/stmc-data
`), 0o600))

	c, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/api/tasks", c.APIURL)
	assert.Equal(t, DefaultAuthURL, c.AuthURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "/tmp/stmc-data", c.DataDir)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example.com\nlog_level: warn\n"), 0o600))
	t.Setenv("STMC_API_URL", "http://env.example.com/api/tasks")
	t.Setenv("DEBUG", "1")

	c, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com/api/tasks", c.APIURL)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("api_url: [unclosed"), 0o600))
	_, err := Load(bad)
	assert.Error(t, err)

	scheme := filepath.Join(dir, "scheme.yaml")
	require.NoError(t, os.WriteFile(scheme, []byte("auth_url: ftp://example.com"), 0o600))
	_, err = Load(scheme)
	assert.ErrorContains(t, err, "auth_url")

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("request_timeout: -1s"), 0o600))
	_, err = Load(negative)
	assert.ErrorContains(t, err, "request_timeout")
}

func TestPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	p, err := Path()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/stmc/config.yaml", p)
}
