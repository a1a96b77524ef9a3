package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel, "backend")

	l.Info("connected to %s", "http://127.0.0.1:8765")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "backend", entry["component"])
	assert.Equal(t, "connected to http://127.0.0.1:8765", entry["message"])
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.WarnLevel, "")

	l.Debug("hidden")
	l.Info("hidden too")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	l.Error("shown %d", 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestEnvLevel(t *testing.T) {
	t.Setenv(DebugEnv, "")
	assert.Equal(t, zerolog.InfoLevel, EnvLevel())

	t.Setenv(DebugEnv, "1")
	assert.Equal(t, zerolog.DebugLevel, EnvLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		expect zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expect, ParseLevel(tt.in))
		})
	}
}

func TestNewFileLogger(t *testing.T) {
	t.Setenv(DebugEnv, "")
	path := filepath.Join(t.TempDir(), "logs", "diagterm.log")

	l, err := NewFileLogger(FileOptions{Path: path, Level: "debug"}, "poll")
	require.NoError(t, err)

	l.Debug("cycle %d done", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cycle 3 done")
	assert.Contains(t, string(data), `"component":"poll"`)
}

func TestNewFileLogger_EmptyPath(t *testing.T) {
	_, err := NewFileLogger(FileOptions{}, "")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Info("info")
	l.Warn("warn")
	l.Error("error: %s", "boom")

	require.Len(t, l.Messages, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug 1"}, l.Messages[0])
	assert.True(t, l.HasLevel("error"))
	assert.True(t, l.Contains("boom"))
	assert.False(t, l.Contains("missing"))

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("info"))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("via default")

	assert.True(t, buf.Contains("via default"))
}
