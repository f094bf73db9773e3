package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"yfmcp/internal/ports"
)

func TestNormalizeFormat(t *testing.T) {
	cases := map[string]string{"": "json", "JSON": "json", "yml": "yaml", " toml ": "toml"}
	for input, want := range cases {
		got, err := normalizeFormat(input)
		if err != nil || got != want {
			t.Fatalf("normalizeFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := normalizeFormat("xml"); err == nil {
		t.Fatalf("normalizeFormat(xml) expected error")
	}
}

func TestWriteOutputFormats(t *testing.T) {
	stats := ports.CacheStats{Total: 3, Valid: 2, Expired: 1, Path: "/tmp/cache.db"}

	var buf bytes.Buffer
	if err := writeOutput(&buf, "json", stats); err != nil {
		t.Fatalf("writeOutput(json) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"total_entries": 3`) {
		t.Fatalf("json output = %s", buf.String())
	}

	buf.Reset()
	if err := writeOutput(&buf, "yaml", stats); err != nil {
		t.Fatalf("writeOutput(yaml) error = %v", err)
	}
	if !strings.Contains(buf.String(), "expired_entries: 1") {
		t.Fatalf("yaml output = %s", buf.String())
	}

	buf.Reset()
	if err := writeOutput(&buf, "toml", stats); err != nil {
		t.Fatalf("writeOutput(toml) error = %v", err)
	}
	if !strings.Contains(buf.String(), "database_path = '/tmp/cache.db'") {
		t.Fatalf("toml output = %s", buf.String())
	}
}

func TestWriteOutputTOMLWrapsNonTables(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutput(&buf, "toml", []any{int64(1), int64(2)}); err != nil {
		t.Fatalf("writeOutput() error = %v", err)
	}
	if !strings.Contains(buf.String(), "result = [1, 2]") {
		t.Fatalf("toml output = %s", buf.String())
	}
}

func TestDecodeDocumentKeepsIntegers(t *testing.T) {
	doc, err := decodeDocument(`{"volume": 1200, "close": 10.5, "items": [1, "a"]}`)
	if err != nil {
		t.Fatalf("decodeDocument() error = %v", err)
	}
	m := doc.(map[string]any)
	if _, ok := m["volume"].(int64); !ok {
		t.Fatalf("volume = %T, want int64", m["volume"])
	}
	if _, ok := m["close"].(float64); !ok {
		t.Fatalf("close = %T, want float64", m["close"])
	}
}

func newArgsCmd(t *testing.T, args string, stdin string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("args", "", "")
	cmd.SetIn(strings.NewReader(stdin))
	if err := cmd.ParseFlags([]string{"--args", args}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestResolveArgs(t *testing.T) {
	raw, err := resolveArgs(newArgsCmd(t, `{"symbol":"AAPL"}`, ""))
	if err != nil || string(raw) != `{"symbol":"AAPL"}` {
		t.Fatalf("resolveArgs() = %s, %v", raw, err)
	}

	raw, err = resolveArgs(newArgsCmd(t, "-", `{"symbol":"MSFT"}`+"\n"))
	if err != nil || string(raw) != `{"symbol":"MSFT"}` {
		t.Fatalf("resolveArgs(stdin) = %s, %v", raw, err)
	}

	raw, err = resolveArgs(newArgsCmd(t, "", ""))
	if err != nil || string(raw) != "{}" {
		t.Fatalf("resolveArgs(empty) = %s, %v", raw, err)
	}

	if _, err := resolveArgs(newArgsCmd(t, "{symbol", "")); err == nil {
		t.Fatalf("resolveArgs(invalid) expected error")
	}
}

func TestServeFlags(t *testing.T) {
	if err := serveCmd.ParseFlags([]string{"--transport", "http", "--addr", "127.0.0.1:9000", "--watch=false"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	transport, _ := serveCmd.Flags().GetString("transport")
	addr, _ := serveCmd.Flags().GetString("addr")
	watch, _ := serveCmd.Flags().GetBool("watch")
	if transport != "http" || addr != "127.0.0.1:9000" || watch {
		t.Fatalf("flags = %q %q %v", transport, addr, watch)
	}
}
