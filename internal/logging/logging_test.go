package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", false, "listen")
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Str("address", "ws://h/ws").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "listen", entry["role"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "ws://h/ws", entry["address"])
	assert.Contains(t, entry, "time")
}

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "", false, "cli")
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "DEBUG", true, "cli")
	require.NoError(t, err)

	l.Debug().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", false, "cli")
	assert.ErrorContains(t, err, `parse log level "loud"`)
}
