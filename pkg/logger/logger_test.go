package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", "json")
	t.Cleanup(func() { defaultLogger = nil })

	ctx := WithContext(context.Background(), TraceIDKey, "trace-1")
	ctx = WithContext(ctx, KeyIDKey, "sk_abc")
	ctx = WithContext(ctx, DeploymentIDKey, "dep-1")
	Error(ctx, "prediction failed", errors.New("boom"), "model", "housingCrisis")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "prediction failed", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "sk_abc", entry["key_id"])
	assert.Equal(t, "dep-1", entry["deployment_id"])
	assert.Equal(t, "housingCrisis", entry["model"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, entry, "user_id")
}

func TestInitWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { defaultLogger = nil })

	ctx := context.Background()
	Info(ctx, "quota consumed")
	assert.Empty(t, buf.String())

	Warn(ctx, "pricing cache unavailable")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "pricing cache unavailable")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}
