package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
	"yfmcp/internal/infrastructure/persistence/sqlite/model"
	"yfmcp/internal/ports"
)

var ErrCacheClosed = errors.New("cache store is closed")

// SQLiteCache persists JSON payloads in the `cache` table. Every operation
// holds mu for the duration of a single statement (two for Get and Stats).
type SQLiteCache struct {
	mu     sync.Mutex
	db     *gorm.DB
	path   string
	now    func() time.Time
	closed bool
}

var _ ports.CacheStore = (*SQLiteCache)(nil)

type Option func(*SQLiteCache)

// WithClock overrides the time source used for created_at/expires_at.
func WithClock(now func() time.Time) Option {
	return func(c *SQLiteCache) {
		if now != nil {
			c.now = now
		}
	}
}

// Open returns a store bound to db and migrates its table. path is the
// database file and is only used for Stats.
func Open(ctx context.Context, db *gorm.DB, path string, opts ...Option) (*SQLiteCache, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if db == nil {
		return nil, errors.New("db is required")
	}

	c := &SQLiteCache{
		db:   db,
		path: strings.TrimSpace(path),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.migrate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Migrate creates the cache table and its expiry index when missing.
func (c *SQLiteCache) Migrate(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return market.CacheUnavailable("migrate", ErrCacheClosed)
	}
	return c.migrate(ctx)
}

func (c *SQLiteCache) migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&model.CacheEntry{}); err != nil {
		return market.CacheUnavailable("migrate", errs.Wrap(err, "auto migrate cache table"))
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	cacheKey, err := checkArgs(ctx, key)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, market.CacheUnavailable("get", ErrCacheClosed)
	}

	now := epochSeconds(c.now())

	var row model.CacheEntry
	err = c.db.WithContext(ctx).Where("key = ? AND expires_at > ?", cacheKey, now).Take(&row).Error
	found := true
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, market.CacheUnavailable("get", errs.Wrap(err, "query cache by key"))
		}
		found = false
	}

	if err := c.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.CacheEntry{}).Error; err != nil {
		logging.Warn(
			logging.WithAttrs(ctx, slog.String("component", "infrastructure.cache")),
			"purge expired entries failed",
			slog.Any("err", errs.Loggable(err)),
		)
	}

	if !found {
		return nil, false, nil
	}
	return json.RawMessage(row.Value), true, nil
}

// Set replaces any entry for key. A ttl <= 0 stores an already expired
// entry.
func (c *SQLiteCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	cacheKey, err := checkArgs(ctx, key)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return market.Serialization(errs.Wrapf(err, "encode value for key %q", cacheKey))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return market.CacheUnavailable("set", ErrCacheClosed)
	}

	now := c.now()
	row := model.CacheEntry{
		Key:       cacheKey,
		Value:     string(payload),
		CreatedAt: epochSeconds(now),
		ExpiresAt: epochSeconds(now.Add(ttl)),
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at"}),
	}).Create(&row).Error; err != nil {
		return market.CacheUnavailable("set", errs.Wrap(err, "upsert cache key"))
	}

	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) (bool, error) {
	cacheKey, err := checkArgs(ctx, key)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, market.CacheUnavailable("delete", ErrCacheClosed)
	}

	result := c.db.WithContext(ctx).Where("key = ?", cacheKey).Delete(&model.CacheEntry{})
	if result.Error != nil {
		return false, market.CacheUnavailable("delete", errs.Wrap(result.Error, "delete cache key"))
	}
	return result.RowsAffected > 0, nil
}

func (c *SQLiteCache) ClearExpired(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, market.CacheUnavailable("clear_expired", ErrCacheClosed)
	}

	result := c.db.WithContext(ctx).Where("expires_at <= ?", epochSeconds(c.now())).Delete(&model.CacheEntry{})
	if result.Error != nil {
		return 0, market.CacheUnavailable("clear_expired", errs.Wrap(result.Error, "delete expired entries"))
	}
	return result.RowsAffected, nil
}

func (c *SQLiteCache) ClearAll(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, market.CacheUnavailable("clear_all", ErrCacheClosed)
	}

	result := c.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.CacheEntry{})
	if result.Error != nil {
		return 0, market.CacheUnavailable("clear_all", errs.Wrap(result.Error, "delete all entries"))
	}
	return result.RowsAffected, nil
}

func (c *SQLiteCache) Stats(ctx context.Context) (ports.CacheStats, error) {
	if err := checkContext(ctx); err != nil {
		return ports.CacheStats{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ports.CacheStats{}, market.CacheUnavailable("stats", ErrCacheClosed)
	}

	var total int64
	if err := c.db.WithContext(ctx).Model(&model.CacheEntry{}).Count(&total).Error; err != nil {
		return ports.CacheStats{}, market.CacheUnavailable("stats", errs.Wrap(err, "count entries"))
	}

	var expired int64
	if err := c.db.WithContext(ctx).Model(&model.CacheEntry{}).
		Where("expires_at <= ?", epochSeconds(c.now())).
		Count(&expired).Error; err != nil {
		return ports.CacheStats{}, market.CacheUnavailable("stats", errs.Wrap(err, "count expired entries"))
	}

	return ports.CacheStats{
		Total:        total,
		Valid:        total - expired,
		Expired:      expired,
		StorageBytes: storageSize(c.path),
		Path:         c.path,
	}, nil
}

// Close releases the database handle. Later calls fail with ErrCacheClosed.
func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	sqlDB, err := c.db.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

func checkArgs(ctx context.Context, key string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("key is required")
	}
	if strings.TrimSpace(key) != key {
		return "", fmt.Errorf("key %q has surrounding whitespace", key)
	}
	return key, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// storageSize sums the main database file and its WAL, if any.
func storageSize(path string) int64 {
	if path == "" || path == ":memory:" || strings.Contains(path, "mode=memory") {
		return 0
	}
	var size int64
	for _, candidate := range []string{path, path + "-wal"} {
		if info, err := os.Stat(candidate); err == nil {
			size += info.Size()
		}
	}
	return size
}
