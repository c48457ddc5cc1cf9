package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "DEBUG", expected: slog.LevelDebug},
		{input: "info", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "", expected: slog.LevelInfo},
		{input: "loud", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, LogLevel(tt.input))
		})
	}
}

func TestRequestIDIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	ctx := WithRequestID(context.Background(), "abc-123")
	log.InfoContext(ctx, "Handled request")

	assert.Contains(t, buf.String(), "request_id=abc-123")
	assert.Equal(t, "abc-123", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestRequestIDSurvivesWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info").With("component", "api")

	log.InfoContext(WithRequestID(context.Background(), "r-1"), "hello")

	assert.Contains(t, buf.String(), "component=api")
	assert.Contains(t, buf.String(), "request_id=r-1")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("quiet")
	log.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "debug").Debug("where")

	assert.Contains(t, buf.String(), "source=logger/logger_test.go:")
}

func TestNewRequestIDIsUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	assert.Equal(t, RequestIDKey, a.Key)
	assert.NotEqual(t, a.Value.String(), b.Value.String())
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()

	log := New(Options{Level: "info", Path: dir, MaxSizeMB: 1})
	log.Info("to file")

	data, err := os.ReadFile(filepath.Join(dir, "procdeck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
