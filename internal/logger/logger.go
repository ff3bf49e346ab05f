// Package logger builds the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects level, output format and an optional log file.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string
}

// levelRouter sends error and fatal events to stderr and everything else to
// stdout.
type levelRouter struct {
	stdout io.Writer
	stderr io.Writer
}

func (lr levelRouter) Write(p []byte) (int, error) {
	return lr.stdout.Write(p)
}

func (lr levelRouter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel && l != zerolog.NoLevel {
		return lr.stderr.Write(p)
	}
	return lr.stdout.Write(p)
}

// New builds a logger and installs it as the zerolog global. The returned
// cleanup closes the log file, if one was opened.
func New(cfg Config) (zerolog.Logger, func(), error) {
	cleanup := func() {}
	var file io.Writer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		file = f
	}

	l := build(cfg, os.Stdout, os.Stderr, file)
	log.Logger = l
	return l, cleanup, nil
}

// build assembles the writer chain. file, when non-nil, receives every level
// as JSON regardless of Format.
func build(cfg Config, stdout, stderr, file io.Writer) zerolog.Logger {
	var out, errOut io.Writer = stdout, stderr
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.DateTime, NoColor: true}
		errOut = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.DateTime, NoColor: true}
	}

	var w io.Writer = levelRouter{stdout: out, stderr: errOut}
	if file != nil {
		w = zerolog.MultiLevelWriter(w, file)
	}

	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
