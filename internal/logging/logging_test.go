package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "stmc.log")

	logger, closer, err := New(path, "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.WithField("op", "tasks.list").Warn("request failed")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hidden")
	assert.Contains(t, string(b), `msg="request failed"`)
	assert.Contains(t, string(b), "op=tasks.list")
	assert.Equal(t, log.WarnLevel, logger.GetLevel())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(filepath.Join(t.TempDir(), "x.log"), "chatty")

	assert.Error(t, err)
}

func TestDefaultPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	p, err := DefaultPath()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-state/stmc/stmc.log", p)
}
