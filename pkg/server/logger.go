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
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// CaptureHandler is a slog.Handler that keeps every record of one run in
// memory and passes it on to the next handler, if any.
type CaptureHandler struct {
	sink  *logSink
	next  slog.Handler
	attrs []slog.Attr
	group string
}

func NewCaptureHandler(next slog.Handler) *CaptureHandler {
	return &CaptureHandler{sink: &logSink{}, next: next}
}

func (h *CaptureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *CaptureHandler) Handle(ctx context.Context, r slog.Record) error {
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

	h.sink.mu.Lock()
	h.sink.entries = append(h.sink.entries, LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Metadata:  meta,
	})
	h.sink.mu.Unlock()

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), prefixed(h.group, attrs)...)
	if h.next != nil {
		cp.next = h.next.WithAttrs(attrs)
	}
	return &cp
}

func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.group = name
	if h.group != "" {
		cp.group = h.group + "." + name
	}
	if h.next != nil {
		cp.next = h.next.WithGroup(name)
	}
	return &cp
}

// Entries returns a copy of the records captured so far.
func (h *CaptureHandler) Entries() []LogEntry {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]LogEntry{}, h.sink.entries...)
}

func prefixed(group string, attrs []slog.Attr) []slog.Attr {
	if group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: group + "." + a.Key, Value: a.Value}
	}
	return out
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindGroup:
		group := make(map[string]any)
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case interface{ String() string }:
			return x.String()
		}
	}
	return v.Any()
}
