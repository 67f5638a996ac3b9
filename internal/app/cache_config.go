package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/cache"
)

// Supported cache.driver values.
const (
	CacheDriverMemory   = "memory"
	CacheDriverDatabase = "database"
	CacheDriverRedis    = "redis"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
		Prefix:   c.Redis.Prefix,
	}
}

// NewStore builds the configured cache back-end. The database driver reuses db.
func (c CacheConfig) NewStore(ctx context.Context, db *gorm.DB) (cache.Store, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", CacheDriverMemory:
		return cache.NewMemoryStore(cache.WithSizeLimit(c.Memory.SizeLimit)), nil
	case CacheDriverDatabase:
		if db == nil {
			return nil, fmt.Errorf("cache: database driver requires a database handle")
		}
		return cache.NewDatabaseStore(db), nil
	case CacheDriverRedis:
		store, err := cache.NewRedisStore(ctx, c.RedisClientConfig())
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("cache: unsupported driver %q", c.Driver)
	}
}
