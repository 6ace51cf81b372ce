// Package logging builds the structured logger shared by every
// component: a console handler fanned out with the system log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Tag identifies benchmark messages in the system log.
const Tag = "ingestbench"

// Options configure New.
type Options struct {
	Console io.Writer
	Level   slog.Level
	// Syslog enables the system log sink.
	Syslog bool
}

// OptionsFromEnv reads INGESTBENCH_LOG_LEVEL (default debug) and
// INGESTBENCH_SYSLOG (default on).
func OptionsFromEnv() (Options, error) {
	opts := Options{Console: os.Stderr, Level: slog.LevelDebug, Syslog: true}

	if v := os.Getenv("INGESTBENCH_LOG_LEVEL"); v != "" {
		if err := opts.Level.UnmarshalText([]byte(v)); err != nil {
			return opts, fmt.Errorf("INGESTBENCH_LOG_LEVEL: %w", err)
		}
	}

	switch strings.ToLower(os.Getenv("INGESTBENCH_SYSLOG")) {
	case "0", "false", "off", "no":
		opts.Syslog = false
	}

	return opts, nil
}

// New returns a logger writing to the console and, when enabled and
// reachable, to syslog. An unreachable syslog is reported through the
// returned logger and otherwise ignored.
func New(opts Options) *slog.Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: opts.Level}),
	}

	var syslogErr error
	if opts.Syslog {
		w, err := syslog.New(syslog.LOG_USER|syslog.LOG_INFO, Tag)
		if err != nil {
			syslogErr = err
		} else {
			handlers = append(handlers, NewSyslogHandler(w, opts.Level))
		}
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	if syslogErr != nil {
		logger.Warn("syslog unavailable, logging to console only",
			slog.String("error", syslogErr.Error()),
		)
	}

	return logger
}
