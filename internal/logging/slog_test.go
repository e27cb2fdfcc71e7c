package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	l := slog.New(h)
	return NewSlogLogger(l), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "a", "1"},
		{"INFO", "inf", "b", "2"},
		{"WARN", "wrn", "c", "3"},
		{"ERROR", "err", "d", "4"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("req_id", "123", "user", "alice")
	log2.Info(ctx, "hello", "k", "v")

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=hello",
		"req_id=123",
		"user=alice",
		"k=v",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextFields(t *testing.T) {
	log, buf := newTestLogger(t)

	ctx := ContextWith(context.Background(), "request_id", "r-9")
	ctx = ContextWith(ctx, "user_id", "u-1")
	log.Warn(ctx, "slow turn", "ms", 1200)

	out := buf.String()
	for _, s := range []string{"request_id=r-9", "user_id=u-1", "ms=1200"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
	if strings.Index(out, "request_id") > strings.Index(out, "ms=") {
		t.Fatalf("context fields should come first:\n%s", out)
	}
}

func TestContextWith_DoesNotShareBacking(t *testing.T) {
	base := ContextWith(context.Background(), "a", 1)
	left := ContextWith(base, "b", 2)
	right := ContextWith(base, "c", 3)

	if got := Fields(left); len(got) != 4 || got[2] != "b" {
		t.Fatalf("left fields: %v", got)
	}
	if got := Fields(right); len(got) != 4 || got[2] != "c" {
		t.Fatalf("right fields: %v", got)
	}
	if Fields(context.Background()) != nil {
		t.Fatal("expected no fields on a bare context")
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}

func TestNewSlog_ProductionIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newSlog(&buf, false)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "shown", "thread_id", "t-1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked into production output:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"thread_id":"t-1"`) {
		t.Fatalf("expected JSON line, got:\n%s", out)
	}
}
