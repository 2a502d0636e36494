package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, NewRedactor()))
}

func TestRedactingHandler_Message(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf).Info("dial failed Bearer secret-token-value")

	if strings.Contains(buf.String(), "secret-token-value") {
		t.Errorf("message leaked: %s", buf.String())
	}
}

func TestRedactingHandler_Attrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("auth", "Bearer with-attrs-secret")
	logger.Info("request",
		"header", "Bearer inline-secret",
		slog.Group("req", slog.String("auth", "Bearer grouped-secret")),
		"error", errors.New("401: Bearer error-secret"),
		"user_id", "u1",
	)

	out := buf.String()
	for _, leak := range []string{"with-attrs-secret", "inline-secret", "grouped-secret", "error-secret"} {
		if strings.Contains(out, leak) {
			t.Errorf("leaked %q: %s", leak, out)
		}
	}
	if !strings.Contains(out, "user_id=u1") {
		t.Errorf("ordinary attr lost: %s", out)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRedactingHandler(inner, NewRedactor())

	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled")
	}
}
