package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Env: "production", Level: "warn", Out: &buf})
	require.NoError(t, err)

	cl := Component(l, "client")
	cl.Info().Msg("dropped")
	cl.Warn().Int("waiters", 3).Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "client", entry["component"])
	assert.Equal(t, float64(3), entry["waiters"])
	assert.Equal(t, "kept", entry["message"])
}

func TestDevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Env: "dev", Out: &buf})
	require.NoError(t, err)

	l.Info().Str("path", "/preferences").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "/preferences")
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, IsDevelopment(""))
	assert.True(t, IsDevelopment("dev"))
	assert.True(t, IsDevelopment("development"))
	assert.False(t, IsDevelopment("production"))
}
