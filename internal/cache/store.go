package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store represents a shared cache interface used across the application.
// A ttl of zero stores the value without expiry.
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter, starting a new window of the
	// given length when none is active, and returns the count and time left.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON loads key into dst. It reports false without error on a miss.
func GetJSON(ctx context.Context, store Store, key string, dst any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key as JSON.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return store.Set(ctx, key, raw, ttl)
}

const defaultCounterWindow = time.Minute

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
