// Package logging builds the zerolog logger used across arion. Logs always
// go to a writer other than stdout, which carries the JSON reports.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	// Level is trace, debug, info, warn, error or disabled. Empty means info.
	Level string
	// Format is json or console. Empty means json.
	Format string
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel converts a level name. "disabled" turns logging off.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, errors.Errorf("unknown log level %q", s)
}

// Formats accepted by ParseFormat.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ParseFormat normalizes a format name. Empty means json.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatConsole:
		return FormatConsole, nil
	}
	return "", errors.Errorf("unknown log format %q", s)
}

// New returns a logger writing to opts.Writer with a timestamp and the
// service name on every event.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	format, err := ParseFormat(opts.Format)
	if err != nil {
		return zerolog.Nop(), err
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "arion").
		Logger(), nil
}
