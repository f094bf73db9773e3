package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSetLevelMovesExistingLoggers(t *testing.T) {
	defer SetLevel(CurrentLevel().String())

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info"))

	Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %s", buf.String())
	}

	SetLevel("debug")
	Debug(ctx, "shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("debug record missing after SetLevel: %s", buf.String())
	}
}

func TestWithAttrsOverridesByKey(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info"))
	ctx = WithAttrs(ctx, slog.String("component", "a"), slog.String("app", "yfmcp"))
	ctx = WithAttrs(ctx, slog.String("component", "b"))
	ctx = WithInvocation(ctx, "get_news", "inv-1")

	Info(ctx, "hello", slog.Int("n", 1))

	line := buf.String()
	for _, want := range []string{"component=b", "app=yfmcp", "tool=get_news", "invocation_id=inv-1", "n=1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
	if strings.Contains(line, "component=a") {
		t.Fatalf("overridden attr still present: %s", line)
	}
}
