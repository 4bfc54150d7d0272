// Package logging builds the zerolog logger of the scribews command.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON entries to w, tagged with role and a timestamp.
// pretty switches to the human readable console format. An empty level means info.
func New(w io.Writer, level string, pretty bool, role string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Str("role", role).
		Timestamp().
		Logger(), nil
}
