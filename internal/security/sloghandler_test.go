package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newRedactingLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(inner, NewRedactor()))
}

const ircPass = "oauth:abcdefghij0123456789abcdefghij"

func TestRedactingHandler_RedactsMessageAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, slog.LevelInfo)
	logger.Info("login with "+ircPass, "line", "PASS "+ircPass, "err", errors.New("bad "+ircPass))

	out := buf.String()
	if strings.Contains(out, "abcdefghij0123") {
		t.Errorf("secret leaked: %s", out)
	}
	if strings.Count(out, RedactPlaceholder) != 3 {
		t.Errorf("expected 3 redactions: %s", out)
	}
}

func TestRedactingHandler_SecretKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, slog.LevelInfo)
	logger.Info("helix", "client_secret", "short", "client_id", "visible-id")

	out := buf.String()
	if strings.Contains(out, "short") || !strings.Contains(out, "visible-id") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRedactingHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, slog.LevelInfo).
		With("pass", ircPass).
		WithGroup("twitch")
	logger.Info("connect", slog.Group("auth", slog.String("line", "PASS "+ircPass)))

	out := buf.String()
	if strings.Contains(out, "abcdefghij0123") {
		t.Errorf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "twitch.auth.line") {
		t.Errorf("group lost: %s", out)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"secret key", slog.String("oauth_token", "x"), RedactPlaceholder},
		{"empty secret key kept", slog.String("client_secret", ""), ""},
		{"pattern in string", slog.String("line", "PASS "+ircPass), "PASS " + RedactPlaceholder},
		{"plain int", slog.Int("emotes", 3), "3"},
		{"error text", slog.Any("err", errors.New(ircPass)), RedactPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := r.RedactAttr(tt.attr).Value.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
