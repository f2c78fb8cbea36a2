// Package logging builds the zerolog logger shared by the CLI, API and
// manager.
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/baiirun/tasks/internal/config"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a logger writing to w. Console format is human readable; json
// writes one object per line.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	zerolog.ErrorFieldName = "err"

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, falling back to def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
