package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func emit(t *testing.T, format logFormat, fn func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	fn(slog.New(handler))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := emit(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "fsm"), slog.LevelInfo, "fsm.transition",
			slog.String("status", "ok"),
			slog.String("department", "Sales"),
		)
	})
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=fsm", "event=fsm.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "department=Sales"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	line := emit(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "relay"), slog.LevelError, "relay.failed",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"relay"`, `"event":"relay.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)
	ctx := WithRID(context.Background(), rawRID)

	kv := emit(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := emit(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(js, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", js)
	}
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", js)
	}
}

func TestStructuredHandlerNormalizesValues(t *testing.T) {
	ctx := context.Background()
	line := emit(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "mail.sent",
			slog.Duration("duration", 1500*time.Millisecond),
			slog.Duration("dial", 20*time.Millisecond),
			slog.String("outcome", "exploded"),
			slog.String("empty", ""),
		)
	})
	for _, want := range []string{"duration_ms=1500", "dial_ms=20", "component=app"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	for _, absent := range []string{"outcome=", "empty="} {
		if strings.Contains(line, absent) {
			t.Fatalf("unexpected %q in %s", absent, line)
		}
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:37":   "z.10.11",
		"not-a-rid":  "not-a-rid",
		"1:x:2":      "1:x:2",
		" 0:0:0 ":    "0.0.0",
		"-1:-100:10": "-1.-2s.a",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "Jane\u200b Doe\x07\nline"
	if got := Sanitize(in); got != "Jane Doe\nline" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("Иван Петров", 4); got != "Иван" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit with zero max = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler should allow everything")
	}
	if num, den := parseRatioSpec("25"); num != 1 || den != 25 {
		t.Fatalf("parseRatioSpec(25) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("2/5"); num != 2 || den != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", num, den)
	}
}
