package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
}

// logBuffer is shared by a RunLogHandler and every handler derived from it.
type logBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
}

// RunLogHandler is a slog.Handler that records the logs of one run in memory so they can be
// returned with the response. Records are also passed to next when it is set.
type RunLogHandler struct {
	buf   *logBuffer
	attrs []slog.Attr
	group string
	next  slog.Handler
}

func NewRunLogHandler(next slog.Handler) *RunLogHandler {
	return &RunLogHandler{buf: &logBuffer{}, next: next}
}

func (h *RunLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // capture everything
}

func (h *RunLogHandler) Handle(ctx context.Context, r slog.Record) error {
	meta := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		meta[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		meta[key] = attrValue(a.Value)
		return true
	})

	h.buf.mu.Lock()
	h.buf.entries = append(h.buf.entries, LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Metadata:  meta,
	})
	h.buf.mu.Unlock()

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// errors and durations are not JSON friendly as is
func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

func (h *RunLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *RunLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	if h.group != "" {
		clone.group = h.group + "." + name
	}
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}

// Entries returns a copy of the captured records.
func (h *RunLogHandler) Entries() []LogEntry {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return append([]LogEntry{}, h.buf.entries...)
}
