package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileName is the log file created inside the log directory
const FileName = "comentario.log"

// handler formats records as:
//
//	<timestamp>\t<level>\t<session>\t<message>\t<key=value ...>
type handler struct {
	mu      *sync.Mutex
	w       io.Writer
	level   slog.Leveler
	session string
	attrs   []slog.Attr
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.session, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{
		mu:      h.mu,
		w:       h.w,
		level:   h.level,
		session: h.session,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *handler) WithGroup(string) slog.Handler { return h }

// NewHandler returns a handler writing to w. Each process run gets its
// own session id so interleaved runs can be told apart.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return &handler{mu: &sync.Mutex{}, w: w, level: level, session: uuid.NewString()[:8]}
}

// New creates a logger writing to logDir/comentario.log. The terminal
// belongs to the UI, so nothing goes to stdout or stderr.
// The caller closes the returned file.
func New(logDir string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(NewHandler(f, level)), f, nil
}

// ParseLevel maps a config value onto a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Adapter wraps *slog.Logger to satisfy engine.Logger
type Adapter struct {
	L *slog.Logger
}

func (a *Adapter) Debug(msg string, args ...any) { a.L.Debug(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.L.Info(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.L.Warn(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.L.Error(msg, args...) }

// Printf lets the adapter stand in for printf-style loggers such as
// chromedp's
func (a *Adapter) Printf(format string, args ...any) {
	a.L.Debug(fmt.Sprintf(format, args...))
}
