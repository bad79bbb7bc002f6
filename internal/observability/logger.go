package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger. format "console" writes human-readable
// lines to stderr; anything else writes JSON to stdout.
func NewLogger(level, format string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return newLogger(out, level)
}

func newLogger(out io.Writer, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(parsed).With().Timestamp().Logger()
}
