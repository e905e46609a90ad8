// Package logging builds the charmbracelet/log loggers kadai writes to. The
// TUI owns the terminal, so diagnostics go to a file that `kadai logs`
// reads back.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Prefix tags every kadai log line.
const Prefix = "kadai"

// LevelEnv selects the file log level.
const LevelEnv = "KADAI_LOG_LEVEL"

// Options control logger construction.
type Options struct {
	Path  string
	Debug bool
	// Level overrides the level derived from Debug and LevelEnv.
	Level string
}

// New returns a logger writing to w with kadai's defaults.
func New(w io.Writer, level log.Level) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          Prefix,
	})
	logger.SetLevel(level)
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}

// Open opens (appending) the log file at opts.Path and returns a logger on
// it together with the file to close on exit.
func Open(opts Options) (*log.Logger, io.Closer, error) {
	level, err := ResolveLevel(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(file, level), file, nil
}

// ResolveLevel picks the level: explicit Level, then LevelEnv, then Debug,
// then info.
func ResolveLevel(opts Options) (log.Level, error) {
	raw := strings.TrimSpace(opts.Level)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv(LevelEnv))
	}
	if raw != "" {
		level, err := log.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return log.InfoLevel, fmt.Errorf("log level %q: %w", raw, err)
		}
		return level, nil
	}
	if opts.Debug {
		return log.DebugLevel, nil
	}
	return log.InfoLevel, nil
}
