package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestInitializeWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "debug", "json")
	defer Initialize("info", "text")

	WithCase("g1", "u1", "c1").Info("transition committed", "stage", "AWAITING_INTERVIEW")
	PlatformResult("grant_role", errors.New("forbidden"), "role_id", "r1")

	out := buf.String()
	assert.Contains(t, out, `"tenant_id":"g1"`)
	assert.Contains(t, out, `"case_id":"c1"`)
	assert.Contains(t, out, `"operation":"grant_role"`)
	assert.Contains(t, out, `"error":"forbidden"`)
}
