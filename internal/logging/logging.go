// Package logging builds the process logger. Hook processes own stdout
// for the host protocol, so logs go to a file, or to stderr when the file
// cannot be opened.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects the log level and destination.
type Config struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// DefaultConfig logs warnings and above to ~/.semantic-hooks/hooks.log.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Level: "warn",
		File:  filepath.Join(home, ".semantic-hooks", "hooks.log"),
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown
// names are an error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelWarn, fmt.Errorf("logging: level %q: %w", s, err)
	}
	return l, nil
}

// New returns a text logger writing to cfg.File, and a closer for the
// file. When the file cannot be opened the logger writes to stderr and
// the fallback is logged once.
func New(cfg Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	level, levelErr := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	out := stderr
	var closer io.Closer = nopCloser{}
	var openErr error
	if cfg.File != "" {
		if f, err := open(cfg.File); err == nil {
			out, closer = f, f
		} else {
			openErr = err
		}
	}

	logger := slog.New(slog.NewTextHandler(out, opts)).With("pid", os.Getpid())
	if levelErr != nil {
		logger.Warn("invalid log level, using warn", "error", levelErr)
	}
	if openErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "file", cfg.File, "error", openErr)
	}
	return logger, closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func open(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
