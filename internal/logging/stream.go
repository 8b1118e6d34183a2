package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// streamTimeFormat matches the layout of lines sent to stream consumers.
const streamTimeFormat = "2006-01-02 15:04:05"

// StreamHandler forwards records to a base handler and additionally renders
// every record at or above minLevel as a single human-readable line for sink.
type StreamHandler struct {
	base     slog.Handler
	sink     func(string)
	minLevel slog.Level
}

// NewStreamHandler creates a StreamHandler. A nil base discards records
// after they are streamed.
func NewStreamHandler(base slog.Handler, sink func(string), minLevel slog.Level) *StreamHandler {
	return &StreamHandler{base: base, sink: sink, minLevel: minLevel}
}

// Enabled implements slog.Handler.
func (h *StreamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.minLevel {
		return true
	}
	return h.base != nil && h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *StreamHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel && h.sink != nil {
		h.sink(FormatStreamLine(r))
	}
	if h.base != nil && h.base.Enabled(ctx, r.Level) {
		return h.base.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *StreamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	if h.base != nil {
		next.base = h.base.WithAttrs(attrs)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *StreamHandler) WithGroup(name string) slog.Handler {
	next := *h
	if h.base != nil {
		next.base = h.base.WithGroup(name)
	}
	return &next
}

// FormatStreamLine renders r as "2006-01-02 15:04:05 [INFO] message".
func FormatStreamLine(r slog.Record) string {
	return fmt.Sprintf("%s [%s] %s", r.Time.Format(streamTimeFormat), r.Level.String(), r.Message)
}
