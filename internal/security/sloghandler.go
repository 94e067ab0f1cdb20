package security

import (
	"context"
	"log/slog"
)

// RedactingHandler scrubs every record before the wrapped handler sees it.
// Attributes whose key names a secret (client_secret, oauth_token) lose
// their value; other strings, and errors through their text, go through
// the Redactor.
type RedactingHandler struct {
	slog.Handler
	redactor *Redactor
}

// NewRedactingHandler wraps inner.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{Handler: inner, redactor: redactor}
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.Handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. attrs are redacted once, here.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		clean = append(clean, h.redactor.RedactAttr(a))
	}
	return NewRedactingHandler(h.Handler.WithAttrs(clean), h.redactor)
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return NewRedactingHandler(h.Handler.WithGroup(name), h.redactor)
}

// RedactAttr returns a with secrets removed, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch {
	case v.Kind() == slog.KindGroup:
		group := v.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case IsSecretKey(a.Key):
		if v.String() != "" {
			v = slog.StringValue(RedactPlaceholder)
		}
	case v.Kind() == slog.KindString:
		v = slog.StringValue(r.Redact(v.String()))
	case v.Kind() == slog.KindAny:
		if s := v.String(); r.Redact(s) != s {
			v = slog.StringValue(r.Redact(s))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
