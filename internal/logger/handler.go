// Package logger provides a colored, human-oriented slog handler for local
// development output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[37m"
	ansiWhite  = "\033[97m"
)

type PrettyHandler struct {
	opts   slog.HandlerOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: *opts, w: w, mu: &sync.Mutex{}}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder

	line.WriteString(ansiGray + r.Time.Format("15:04:05.000") + ansiReset)
	line.WriteString(" " + levelColor(r.Level) + fmt.Sprintf("%-5s", r.Level.String()) + ansiReset)
	line.WriteString(" " + ansiWhite + r.Message + ansiReset)

	for _, attr := range h.attrs {
		h.writeAttr(&line, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&line, attr)
		return true
	})
	line.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *PrettyHandler) writeAttr(line *strings.Builder, attr slog.Attr) {
	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}

	value := attr.Value.Any()
	if t, ok := value.(time.Time); ok {
		value = t.Format(time.RFC3339)
	}

	fmt.Fprintf(line, " %s%s%s=%v", ansiCyan, key, ansiReset, value)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiPurple
	}
}
