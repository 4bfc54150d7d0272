package scribews

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	base := NewZerologLogger(zerolog.New(&buf))

	base.WithField("address", "ws://h/ws").WithField("attempt", 2).Infof("reconnecting in %s", "1s")
	base.Warnln("plain", "line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "ws://h/ws", first["address"])
	assert.Equal(t, float64(2), first["attempt"])
	assert.Equal(t, "reconnecting in 1s", first["message"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "plain line", second["message"])
	assert.NotContains(t, second, "address")
}

func TestZerologLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debugf("hidden %d", 1)
	l.Errorf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}
