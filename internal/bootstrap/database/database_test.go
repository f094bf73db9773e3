package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"yfmcp/internal/bootstrap/config"
)

func TestFilePath(t *testing.T) {
	cases := map[string]string{
		"/tmp/cache.db":                        "/tmp/cache.db",
		"file:/tmp/cache.db?_pragma=foo(1)":    "/tmp/cache.db",
		":memory:":                             "",
		"file:shared?mode=memory&cache=shared": "",
		"  relative/cache.db  ":                "relative/cache.db",
	}
	for dsn, want := range cases {
		if got := FilePath(dsn); got != want {
			t.Fatalf("FilePath(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestWithPragmas(t *testing.T) {
	if got := withPragmas(":memory:"); got != ":memory:" {
		t.Fatalf("withPragmas(:memory:) = %q", got)
	}
	got := withPragmas("/tmp/cache.db")
	want := "/tmp/cache.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if got != want {
		t.Fatalf("withPragmas() = %q, want %q", got, want)
	}
	if got := withPragmas("/tmp/cache.db?_pragma=busy_timeout(1)"); got != "/tmp/cache.db?_pragma=busy_timeout(1)" {
		t.Fatalf("withPragmas() must keep explicit pragmas, got %q", got)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "cache.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Stat(%q) error = %v", dir, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unsupported driver")
	}
}
