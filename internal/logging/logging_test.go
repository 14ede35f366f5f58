package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/maltedev/screwfix-catalog-scraper/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

		logger.Info("dropped")
		logger.Warn("kept", "component", "pool")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "pool", entry["component"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

		logger.Debug("classified", "rows", 3)
		assert.Contains(t, buf.String(), "msg=classified rows=3")
	})
}
