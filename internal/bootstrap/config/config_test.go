package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(context.Background(), writeConfig(t, "app:\n  env: test\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "yfmcp" || cfg.App.Env != "test" {
		t.Fatalf("app = %+v", cfg.App)
	}
	if cfg.Market.Default != "US" {
		t.Fatalf("market.default = %q, want US", cfg.Market.Default)
	}
	wantDir := filepath.Join(home, ".mcp-yfinance")
	if cfg.Cache.Dir != wantDir {
		t.Fatalf("cache.dir = %q, want %q", cfg.Cache.Dir, wantDir)
	}
	if cfg.Database.DSN != filepath.Join(wantDir, "cache.db") {
		t.Fatalf("database.dsn = %q", cfg.Database.DSN)
	}
	if cfg.Cache.SweepInterval != 10*time.Minute {
		t.Fatalf("cache.sweep_interval = %v", cfg.Cache.SweepInterval)
	}
	if cfg.Cache.TTL["news"] != 1800 || cfg.Cache.TTL["option_chain"] != 300 || cfg.Cache.TTL["default"] != 3600 {
		t.Fatalf("cache.ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Yahoo.Timeout != 30*time.Second {
		t.Fatalf("yahoo.timeout = %v", cfg.Yahoo.Timeout)
	}
	if cfg.Server.Transport != "stdio" {
		t.Fatalf("server.transport = %q", cfg.Server.Transport)
	}
}

func TestLoadHonoursLegacyEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YFINANCE_CACHE_DIR", dir)
	t.Setenv("YFINANCE_DEFAULT_MARKET", "br")
	t.Setenv("YFMCP_CACHE_TTL_NEWS", "42")

	cfg, err := Load(context.Background(), writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Dir != dir {
		t.Fatalf("cache.dir = %q, want %q", cfg.Cache.Dir, dir)
	}
	if cfg.Market.Default != "BR" {
		t.Fatalf("market.default = %q, want BR", cfg.Market.Default)
	}
	if cfg.Cache.TTL["news"] != 42 {
		t.Fatalf("cache.ttl.news = %d, want 42", cfg.Cache.TTL["news"])
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log.level = %q", cfg.Log.Level)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"cache:",
		"  dir: /tmp/yfmcp-test",
		"  file: other.db",
		"  ttl:",
		"    stock_info: 120",
		"server:",
		"  transport: http",
		"  addr: 127.0.0.1:9999",
	}, "\n"))

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Path() != filepath.Join("/tmp/yfmcp-test", "other.db") {
		t.Fatalf("cache path = %q", cfg.Cache.Path())
	}
	if cfg.Cache.TTL["stock_info"] != 120 {
		t.Fatalf("cache.ttl.stock_info = %d", cfg.Cache.TTL["stock_info"])
	}
	if cfg.Cache.TTL["dividends"] != 86400 {
		t.Fatalf("cache.ttl.dividends = %d, want default", cfg.Cache.TTL["dividends"])
	}
	if cfg.Server.Transport != "http" || cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"market":    "market:\n  default: XX\n",
		"transport": "server:\n  transport: grpc\n",
		"ttl":       "cache:\n  ttl:\n    news: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(context.Background(), writeConfig(t, body)); err == nil {
				t.Fatalf("Load() expected error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("Load() expected error for missing explicit file")
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/cache")
	if err != nil {
		t.Fatalf("ExpandHome() error = %v", err)
	}
	if got != filepath.Join(home, "cache") {
		t.Fatalf("ExpandHome() = %q", got)
	}

	got, err = ExpandHome("/var/lib/yfmcp")
	if err != nil || got != "/var/lib/yfmcp" {
		t.Fatalf("ExpandHome() = %q, %v", got, err)
	}
}
