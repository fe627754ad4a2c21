package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	Session(logger, "s1").Info("state changed", zap.String("to", "ASK_QUESTION"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"state changed"`)
	assert.Contains(t, out, `"session_id":"s1"`)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.log")
	var buf bytes.Buffer
	logger, err := newLogger(Config{Level: "debug", Format: "console", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	logger.Debug("written")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"written"`))
	assert.Contains(t, buf.String(), "written")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
