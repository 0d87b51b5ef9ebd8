// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger at level writing to w. Format "console"
// selects the human readable writer; anything else writes JSON lines.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logging: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "", "json":
	default:
		return zerolog.Nop(), fmt.Errorf("logging: unknown format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "gamecatalog").Logger(), nil
}

// Must is New writing to stderr. It falls back to an info level JSON logger
// and reports the problem through that logger.
func Must(level, format string) zerolog.Logger {
	log, err := New(os.Stderr, level, format)
	if err != nil {
		log = zerolog.New(os.Stderr).With().Timestamp().Str("service", "gamecatalog").Logger()
		log.Warn().Err(err).Msg("invalid log settings, using defaults")
	}
	return log
}
