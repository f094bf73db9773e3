package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T, opts ...Option) (*SQLiteCache, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cache.db")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	store, err := Open(context.Background(), db, dsn, opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, db
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "quote:AAPL", map[string]any{"symbol": "AAPL", "price": 187.5}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "quote:AAPL")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatalf("Get() expected found=true")
	}

	var decoded map[string]any
	if err := json.Unmarshal(value, &decoded); err != nil {
		t.Fatalf("decode cached value: %v", err)
	}
	if decoded["symbol"] != "AAPL" || decoded["price"] != 187.5 {
		t.Fatalf("Get() value = %s", value)
	}

	removed, err := cache.Delete(ctx, "quote:AAPL")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !removed {
		t.Fatalf("Delete() expected removed=true")
	}

	removed, err = cache.Delete(ctx, "quote:AAPL")
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if removed {
		t.Fatalf("Delete() second call expected removed=false")
	}

	_, found, err = cache.Get(ctx, "quote:AAPL")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestSQLiteCacheUpsertReplaces(t *testing.T) {
	cache, db := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v1", time.Minute); err != nil {
		t.Fatalf("Set(v1) error = %v", err)
	}
	if err := cache.Set(ctx, "k", "v2", time.Minute); err != nil {
		t.Fatalf("Set(v2) error = %v", err)
	}

	var count int64
	if err := db.Model(&model.CacheEntry{}).Where("key = ?", "k").Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}

	value, found, err := cache.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get() found=%v err=%v", found, err)
	}
	if string(value) != `"v2"` {
		t.Fatalf("Get() value = %s, want \"v2\"", value)
	}
}

func TestSQLiteCacheUpsertReplacesExpiry(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", 1, -time.Second); err != nil {
		t.Fatalf("Set(expired) error = %v", err)
	}
	if err := cache.Set(ctx, "k", 2, time.Minute); err != nil {
		t.Fatalf("Set(live) error = %v", err)
	}

	value, found, err := cache.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get() found=%v err=%v", found, err)
	}
	if string(value) != "2" {
		t.Fatalf("Get() value = %s", value)
	}
}

func TestSQLiteCacheTTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps past the ttl boundary")
	}
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "short", "lived", time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "short"); err != nil || !found {
		t.Fatalf("Get() immediately found=%v err=%v", found, err)
	}

	time.Sleep(2 * time.Second)

	_, found, err := cache.Get(ctx, "short")
	if err != nil {
		t.Fatalf("Get() after ttl error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after ttl")
	}
}

func TestSQLiteCacheExpiryWithClock(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	cache, db := setupSQLiteCache(t, WithClock(clock))
	ctx := context.Background()

	if err := cache.Set(ctx, "a", "x", 10*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "b", "y", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mu.Lock()
	now = now.Add(10 * time.Second)
	mu.Unlock()

	_, found, err := cache.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatalf("Get() at expires_at expected found=false")
	}

	var remaining int64
	if err := db.Model(&model.CacheEntry{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("rows after opportunistic purge = %d, want 1", remaining)
	}
}

func TestSQLiteCacheStats(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	for key, ttl := range map[string]time.Duration{"live-1": time.Minute, "live-2": time.Hour, "stale": -time.Second} {
		if err := cache.Set(ctx, key, key, ttl); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 3 || stats.Expired != 1 || stats.Valid != 2 {
		t.Fatalf("Stats() = %+v, want total=3 expired=1 valid=2", stats)
	}
	if stats.StorageBytes <= 0 {
		t.Fatalf("Stats() storage bytes = %d, want > 0", stats.StorageBytes)
	}
}

func TestSQLiteCacheClearOperations(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "stale", 1, -time.Second); err != nil {
		t.Fatalf("Set(stale) error = %v", err)
	}
	if err := cache.Set(ctx, "live", 2, time.Minute); err != nil {
		t.Fatalf("Set(live) error = %v", err)
	}

	removed, err := cache.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("ClearExpired() = %d, want 1", removed)
	}
	if _, found, _ := cache.Get(ctx, "live"); !found {
		t.Fatalf("live entry should survive ClearExpired")
	}

	if err := cache.Set(ctx, "other", 3, time.Minute); err != nil {
		t.Fatalf("Set(other) error = %v", err)
	}
	removed, err = cache.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("ClearAll() = %d, want 2", removed)
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("Stats().Total = %d after ClearAll", stats.Total)
	}
}

func TestSQLiteCacheRejectsNonSerializable(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "bad", math.NaN(), time.Minute)
	if market.KindOf(err) != market.KindSerialization {
		t.Fatalf("Set(NaN) error = %v, want serialization kind", err)
	}
	err = cache.Set(ctx, "bad", map[string]any{"ch": make(chan int)}, time.Minute)
	if !errors.Is(err, market.ErrSerialization) {
		t.Fatalf("Set(chan) error = %v, want ErrSerialization", err)
	}

	if _, found, _ := cache.Get(ctx, "bad"); found {
		t.Fatalf("non-serializable value must not be stored")
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", time.Minute); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if _, err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}

func TestSQLiteCacheRejectsPaddedKey(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	for _, key := range []string{" k", "k ", "\tk\n"} {
		if err := cache.Set(ctx, key, "other", time.Minute); err == nil {
			t.Fatalf("Set(%q) expected error", key)
		}
		if _, _, err := cache.Get(ctx, key); err == nil {
			t.Fatalf("Get(%q) expected error", key)
		}
		if _, err := cache.Delete(ctx, key); err == nil {
			t.Fatalf("Delete(%q) expected error", key)
		}
	}

	raw, found, err := cache.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get(k) = found %v, err %v", found, err)
	}
	if string(raw) != `"v"` {
		t.Fatalf("Get(k) = %s, want \"v\"", raw)
	}
}

func TestSQLiteCacheClosed(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close() twice error = %v", err)
	}

	_, _, err := cache.Get(ctx, "k")
	if !errors.Is(err, ErrCacheClosed) || market.KindOf(err) != market.KindCacheUnavailable {
		t.Fatalf("Get() after close error = %v", err)
	}
	if err := cache.Set(ctx, "k", 1, time.Minute); !errors.Is(err, ErrCacheClosed) {
		t.Fatalf("Set() after close error = %v", err)
	}
	if _, err := cache.Stats(ctx); !errors.Is(err, ErrCacheClosed) {
		t.Fatalf("Stats() after close error = %v", err)
	}
}

func TestSQLiteCacheConcurrentSetSameKey(t *testing.T) {
	cache, db := setupSQLiteCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := cache.Set(ctx, "shared", n, time.Minute); err != nil {
				failures.Add(1)
			}
			if _, _, err := cache.Get(ctx, "shared"); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("concurrent operations failed %d times", failures.Load())
	}
	var count int64
	if err := db.Model(&model.CacheEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestJanitorSweepsExpired(t *testing.T) {
	cache, _ := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "stale", 1, -time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	janitor := NewJanitor(cache, 20*time.Millisecond)
	janitor.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats, err := cache.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.Total == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not remove expired entry, stats=%+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := janitor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
