// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a logger at the given level (info when unknown) as log.Logger
// and returns it. pretty selects the human-readable console writer.
func Setup(level string, pretty bool) zerolog.Logger {
	return setup(os.Stderr, level, pretty)
}

func setup(out io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	log.Logger = l
	return l
}
