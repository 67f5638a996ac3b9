package app

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/internal/cache"
	"github.com/charlesng35/accounthub/internal/geo"
)

// Supported geolocation.provider values.
const (
	GeoProviderHTTP    = "http"
	GeoProviderMaxMind = "maxmind"
	GeoProviderNone    = "none"
)

// NewLocator builds the configured locator, wrapped in a cache when store is set
// and cache_ttl is positive. The returned closer releases provider resources and
// may be nil. A nil locator means geolocation is disabled.
func (c GeolocationConfig) NewLocator(store cache.Store, log *zap.Logger) (geo.Locator, io.Closer, error) {
	var (
		locator geo.Locator
		closer  io.Closer
	)

	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case GeoProviderNone:
		return nil, nil, nil
	case "", GeoProviderHTTP:
		httpLocator, err := geo.NewHTTPLocator(c.APIURL, geo.WithTimeout(c.Timeout))
		if err != nil {
			return nil, nil, fmt.Errorf("geolocation: %w", err)
		}
		locator = httpLocator
	case GeoProviderMaxMind:
		mm, err := geo.OpenMaxMind(c.MaxMindDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("geolocation: %w", err)
		}
		locator, closer = mm, mm
	default:
		return nil, nil, fmt.Errorf("geolocation: unsupported provider %q", c.Provider)
	}

	if store != nil && c.CacheTTL > 0 {
		locator = geo.NewCachedLocator(locator, store, c.CacheTTL, log)
	}
	return locator, closer, nil
}
