package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// MemoryOption customises a MemoryStore.
type MemoryOption func(*ttlcache.Cache)

// WithSizeLimit caps the number of cached items; the oldest are evicted first.
func WithSizeLimit(limit int) MemoryOption {
	return func(c *ttlcache.Cache) {
		if limit > 0 {
			c.SetCacheSizeLimit(limit)
		}
	}
}

// MemoryStore keeps entries in process memory. Entries do not survive restarts
// and are not shared between replicas.
type MemoryStore struct {
	cache *ttlcache.Cache
	mu    sync.Mutex
	now   func() time.Time
}

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore constructs an in-process Store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)
	for _, opt := range opts {
		opt(c)
	}
	return &MemoryStore{cache: c, now: time.Now}
}

// IncrementWithTTL implements Store.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = defaultCounterWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter := memoryCounter{count: 0, resetAt: now.Add(window)}
	if item, err := s.cache.Get(key); err == nil {
		if existing, ok := item.(memoryCounter); ok && now.Before(existing.resetAt) {
			counter = existing
		}
	}
	counter.count++

	remaining := counter.resetAt.Sub(now)
	if err := s.cache.SetWithTTL(key, counter, remaining); err != nil {
		return 0, 0, fmt.Errorf("cache: memory increment: %w", err)
	}
	return counter.count, remaining, nil
}

// Set stores a copy of value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.cache.SetWithTTL(key, append([]byte(nil), value...), ttl); err != nil {
		return fmt.Errorf("cache: memory set: %w", err)
	}
	return nil
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := s.cache.Get(key)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: memory get: %w", err)
	}
	value, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Delete removes keys; missing keys are ignored.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.cache.Remove(key); err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
			return fmt.Errorf("cache: memory delete: %w", err)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	return s.cache.Count()
}

// Close stops the expiry goroutine.
func (s *MemoryStore) Close() error {
	if err := s.cache.Close(); err != nil && !errors.Is(err, ttlcache.ErrClosed) {
		return err
	}
	return nil
}
