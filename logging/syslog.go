package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// SyslogWriter is the subset of *syslog.Writer used for delivery.
type SyslogWriter interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
}

// levelWriter routes each formatted line to the syslog severity of the
// record being handled.
type levelWriter struct {
	mu    sync.Mutex
	w     SyslogWriter
	level slog.Level
}

func (lw *levelWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")

	var err error

	switch {
	case lw.level >= slog.LevelError:
		err = lw.w.Err(msg)
	case lw.level >= slog.LevelWarn:
		err = lw.w.Warning(msg)
	case lw.level >= slog.LevelInfo:
		err = lw.w.Info(msg)
	default:
		err = lw.w.Debug(msg)
	}

	if err != nil {
		return 0, err
	}

	return len(p), nil
}

type syslogHandler struct {
	out   *levelWriter
	inner slog.Handler
}

// NewSyslogHandler formats records as logfmt without a timestamp, which
// syslog adds itself, and delivers them at the matching severity.
func NewSyslogHandler(w SyslogWriter, level slog.Leveler) slog.Handler {
	out := &levelWriter{w: w}

	return &syslogHandler{
		out: out,
		inner: slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) == 0 && a.Key == slog.TimeKey {
					return slog.Attr{}
				}

				return a
			},
		}),
	}
}

func (h *syslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *syslogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	h.out.level = r.Level

	return h.inner.Handle(ctx, r)
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{out: h.out, inner: h.inner.WithAttrs(attrs)}
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return &syslogHandler{out: h.out, inner: h.inner.WithGroup(name)}
}
