package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// BufferHandler records entries in a RingBuffer for the window's recent logs
// view. Attributes from WithAttrs are flattened once, when the logger is
// derived, since module loggers are long lived and records are many.
type BufferHandler struct {
	buffer *RingBuffer
	level  slog.Leveler
	module string
	fixed  map[string]any
	prefix string // dotted group path, "" or "a.b."
}

// NewBufferHandler creates a handler that writes to buffer.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler) *BufferHandler {
	return &BufferHandler{buffer: buffer, level: level, module: ModuleApp}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelName(r.Level),
		Module:    h.module,
		Message:   r.Message,
	}
	if len(h.fixed) > 0 || r.NumAttrs() > 0 {
		entry.Attributes = maps.Clone(h.fixed)
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any, r.NumAttrs())
		}
		r.Attrs(func(a slog.Attr) bool {
			if h.prefix == "" && a.Key == "module" {
				entry.Module = a.Value.String()
				return true
			}
			flattenAttr(entry.Attributes, h.prefix, a)
			return true
		})
	}

	h.buffer.Write(entry)
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fixed = maps.Clone(h.fixed)
	if next.fixed == nil {
		next.fixed = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		if h.prefix == "" && a.Key == "module" {
			next.module = a.Value.String()
			continue
		}
		flattenAttr(next.fixed, h.prefix, a)
	}
	return &next
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// flattenAttr stores a under prefix+key; groups become dotted keys.
func flattenAttr(attrs map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key

	switch a.Value.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, groupPrefix, ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= LevelCritical:
		return "critical"
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// String renders the entry as one line of the recent logs view:
// "15:04:05.000 WARN  server: message key=value".
func (e LogEntry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s: %s",
		e.Timestamp.Format("15:04:05.000"), strings.ToUpper(e.Level), e.Module, e.Message)

	for _, k := range slices.Sorted(maps.Keys(e.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attributes[k])
	}
	return sb.String()
}
