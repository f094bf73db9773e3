package ports

import (
	"context"
	"encoding/json"
	"time"
)

// CacheStore is a durable key-value store with per-entry expiry.
// Values are JSON documents; Get hands back the stored JSON untouched.
type CacheStore interface {
	Get(ctx context.Context, key string) (value json.RawMessage, found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	ClearExpired(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (CacheStats, error)
	Close() error
}

type CacheStats struct {
	Total        int64  `json:"total_entries" yaml:"total_entries" toml:"total_entries"`
	Valid        int64  `json:"valid_entries" yaml:"valid_entries" toml:"valid_entries"`
	Expired      int64  `json:"expired_entries" yaml:"expired_entries" toml:"expired_entries"`
	StorageBytes int64  `json:"database_size_bytes" yaml:"database_size_bytes" toml:"database_size_bytes"`
	Path         string `json:"database_path" yaml:"database_path" toml:"database_path"`
}
