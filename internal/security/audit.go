package security

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Audit event types for admin and chat-injection activity.
const (
	EventAuthSuccess  EventType = "auth_success"
	EventAuthFailure  EventType = "auth_failure"
	EventThemeChange  EventType = "theme_change"
	EventWallToggle   EventType = "wall_toggle"
	EventChatInject   EventType = "chat_inject"
	EventConfigReload EventType = "config_reload"
	EventRateLimit    EventType = "rate_limit"
	EventJobTrigger   EventType = "job_trigger"
)

// AuditEvent records one admin action or chat injection.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Scope     string            `json:"scope,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// LogValue implements slog.LogValuer with the non-empty fields only.
func (e AuditEvent) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", string(e.Type))}
	for _, f := range [...]struct{ key, val string }{
		{"actor", e.Actor}, {"channel", e.Channel}, {"scope", e.Scope}, {"detail", e.Detail},
	} {
		if f.val != "" {
			attrs = append(attrs, slog.String(f.key, f.val))
		}
	}
	for _, k := range slices.Sorted(maps.Keys(e.Metadata)) {
		attrs = append(attrs, slog.String(k, e.Metadata[k]))
	}
	return slog.GroupValue(attrs...)
}

// AuditSink receives every event after redaction. Sinks are called one at
// a time.
type AuditSink func(AuditEvent)

// JSONLSink writes one JSON object per line to w.
func JSONLSink(w io.Writer) AuditSink {
	enc := json.NewEncoder(w)
	return func(e AuditEvent) { _ = enc.Encode(e) }
}

// SlogSink logs each event at Info under the "audit" message.
func SlogSink(logger *slog.Logger) AuditSink {
	return func(e AuditEvent) {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", slog.Any("event", e))
	}
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	Sinks []AuditSink

	// Redactor, if non-nil, is applied to Detail and Metadata values.
	Redactor *Redactor

	// Keep is how many recent events Recent returns. Default: 100.
	Keep int

	// Now overrides time.Now.
	Now func() time.Time
}

// AuditLogger stamps, redacts and fans out audit events, and keeps the
// most recent ones for the admin API.
type AuditLogger struct {
	redactor *Redactor
	now      func() time.Time
	keep     int

	mu     sync.Mutex
	sinks  []AuditSink
	recent []AuditEvent
}

// NewAuditLogger creates an audit logger with the given configuration.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 100
	}
	return &AuditLogger{
		redactor: cfg.Redactor,
		now:      cfg.Now,
		keep:     cfg.Keep,
		sinks:    slices.Clone(cfg.Sinks),
	}
}

// Log stamps and records event. The caller's Metadata map is never mutated.
// A nil logger discards the event.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.now()
	event.Metadata = maps.Clone(event.Metadata)
	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recent) == l.keep {
		l.recent = slices.Delete(l.recent, 0, 1)
	}
	l.recent = append(l.recent, event)
	for _, sink := range l.sinks {
		sink(event)
	}
}

// Recent returns up to Keep of the latest events, newest first.
func (l *AuditLogger) Recent() []AuditEvent {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Clone(l.recent)
	slices.Reverse(out)
	return out
}
