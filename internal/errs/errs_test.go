package errs

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type kindError struct{ kind string }

func (e kindError) Error() string { return "classified failure" }
func (e kindError) ErrorKind() string { return e.kind }

func TestWrapKeepsChain(t *testing.T) {
	if Wrap(nil, "ctx") != nil || Wrapf(nil, "ctx %d", 1) != nil {
		t.Fatalf("Wrap(nil) must stay nil")
	}

	root := kindError{kind: "symbol_not_found"}
	err := Wrapf(Wrap(root, "fetch"), "tool %s", "get_news")
	if err.Error() != "tool get_news: fetch: classified failure" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if got := KindOf(err); got != "symbol_not_found" {
		t.Fatalf("KindOf() = %q, want symbol_not_found", got)
	}
	if got := KindOf(errors.New("plain")); got != "unknown" {
		t.Fatalf("KindOf(plain) = %q, want unknown", got)
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	err := WithStack(errors.New("boom"))
	again := WithStack(Wrap(err, "outer"))

	var se *StackError
	if !errors.As(again, &se) || len(se.Stack()) == 0 {
		t.Fatalf("stack not captured")
	}
	if again.Error() != "outer: boom" {
		t.Fatalf("Error() = %q", again.Error())
	}
}

func TestErrorChainStringsFollowsJoin(t *testing.T) {
	err := Wrap(errors.Join(errors.New("a"), errors.New("b")), "both")
	chain := ErrorChainStrings(err)
	if len(chain) != 4 || chain[2] != "a" || chain[3] != "b" {
		t.Fatalf("ErrorChainStrings() = %q", chain)
	}
}

func TestLoggableValue(t *testing.T) {
	value := Loggable(Wrap(kindError{kind: "upstream_error"}, "chart")).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue().Kind() = %v, want group", value.Kind())
	}

	got := map[string]string{}
	for _, attr := range value.Group() {
		got[attr.Key] = attr.Value.String()
	}
	if got["message"] != "chart: classified failure" || got["kind"] != "upstream_error" {
		t.Fatalf("attrs = %v", got)
	}
	if !strings.Contains(got["chain"], "classified failure") {
		t.Fatalf("chain attr = %q", got["chain"])
	}
}
