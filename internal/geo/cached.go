package geo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/internal/cache"
)

const cacheKeyPrefix = "geo:"

// CachedLocator serves repeated lookups for the same address from a cache.Store.
// Only successful lookups are cached. Cache failures degrade to a direct lookup.
type CachedLocator struct {
	next  Locator
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedLocator wraps next. A nil store disables caching.
func NewCachedLocator(next Locator, store cache.Store, ttl time.Duration, log *zap.Logger) *CachedLocator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedLocator{next: next, store: store, ttl: ttl, log: log}
}

// Locate returns a cached location when present, otherwise delegates and caches the answer.
func (c *CachedLocator) Locate(ctx context.Context, ip string) (*Location, error) {
	if c.store == nil {
		return c.next.Locate(ctx, ip)
	}

	key := cacheKeyPrefix + ip
	var cached Location
	hit, err := cache.GetJSON(ctx, c.store, key, &cached)
	if err != nil {
		c.log.Debug("geo cache read failed", zap.String("ip", ip), zap.Error(err))
	}
	if hit {
		cached.Cached = true
		return &cached, nil
	}

	loc, err := c.next.Locate(ctx, ip)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.store, key, loc, c.ttl); err != nil {
		c.log.Debug("geo cache write failed", zap.String("ip", ip), zap.Error(err))
	}
	return loc, nil
}

// Name reports the wrapped provider.
func (c *CachedLocator) Name() string {
	return c.next.Name()
}

var _ Locator = (*CachedLocator)(nil)
