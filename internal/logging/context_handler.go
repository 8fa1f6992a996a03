package logging

import (
	"context"
	"log/slog"
)

// contextHandler adds request_id and pass from the record's context unless the
// logger already carries them, so *Context logging calls need no WithContext.
type contextHandler struct {
	next  slog.Handler
	bound map[string]bool
}

func newContextHandler(next slog.Handler) slog.Handler {
	return &contextHandler{next: next}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, field := range ContextFields(ctx) {
		if h.bound[field.Key] || recordHasKey(record, field.Key) {
			continue
		}
		record.AddAttrs(field)
	}
	return h.next.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for key := range h.bound {
		bound[key] = true
	}
	for _, attr := range attrs {
		if attr.Key == FieldRequestID || attr.Key == FieldPass {
			bound[attr.Key] = true
		}
	}
	return &contextHandler{next: h.next.WithAttrs(attrs), bound: bound}
}

// WithGroup stops injection: fields added inside a group would be nested.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return h.next.WithGroup(name)
}

func recordHasKey(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		found = attr.Key == key
		return !found
	})
	return found
}
