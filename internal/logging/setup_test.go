package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupHandlerText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		logLevel      string
		expectedLevel log.Level
	}{
		{"trace", "trace", log.DebugLevel},
		{"debug", "debug", log.DebugLevel},
		{"info", "info", log.InfoLevel},
		{"warn", "warn", log.WarnLevel},
		{"warning", "WARNING", log.WarnLevel},
		{"error", "error", log.ErrorLevel},
		{"empty", "", log.InfoLevel},
		{"unknown", "verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := SetupHandlerText(tt.logLevel, &bytes.Buffer{})
			logger, ok := handler.(*log.Logger)
			require.True(t, ok)
			assert.Equal(t, tt.expectedLevel, logger.GetLevel())
		})
	}
}

func TestSetupHandlerTextWrites(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(SetupHandlerText("info", &buf))

	logger.Debug("hidden")
	logger.Info("compiled", "key", "kernel")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "compiled")
	assert.Contains(t, out, "kernel")
}

func TestSetupHandlerJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		logLevel string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			t.Parallel()
			handler := SetupHandlerJSON(tt.logLevel, &bytes.Buffer{})
			ctx := context.Background()
			assert.True(t, handler.Enabled(ctx, tt.enabled))
			assert.False(t, handler.Enabled(ctx, tt.disabled))
		})
	}

	t.Run("output is json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		slog.New(SetupHandlerJSON("info", &buf)).Info("cached", "key", "kernel")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "cached", entry["msg"])
		assert.Equal(t, "kernel", entry["key"])
	})
}

func TestSetupHandler(t *testing.T) {
	t.Parallel()
	_, isText := SetupHandler("text", "info", &bytes.Buffer{}).(*log.Logger)
	assert.True(t, isText)
	_, isJSON := SetupHandler("JSON", "info", &bytes.Buffer{}).(*slog.JSONHandler)
	assert.True(t, isJSON)
}
