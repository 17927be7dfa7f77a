package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "info", "json")).Info("image described", "chars", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "image described", entry["msg"])
	assert.Equal(t, float64(42), entry["chars"])
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "info", "text")).Info("image described", "chars", 42)

	assert.Contains(t, buf.String(), `msg="image described"`)
	assert.Contains(t, buf.String(), "chars=42")
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, "warn", "json")
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
}

func TestNew_WritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "ingredia.log")
	logger, cleanup, err := New("info", "json", path)
	require.NoError(t, err)

	logger.Info("started")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"started"`))
}

func TestNew_BadLogFile(t *testing.T) {
	_, _, err := New("info", "json", filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}
