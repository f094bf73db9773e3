package model

// CacheEntry is one row of the response cache. Timestamps are epoch seconds.
type CacheEntry struct {
	Key       string  `gorm:"column:key;type:text;primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	CreatedAt float64 `gorm:"column:created_at;type:real;not null;autoCreateTime:false"`
	ExpiresAt float64 `gorm:"column:expires_at;type:real;not null;index:idx_expires_at"`
}

func (CacheEntry) TableName() string {
	return "cache"
}
