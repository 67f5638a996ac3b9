package checks

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/charlesng35/accounthub/internal/cache"
	"github.com/charlesng35/accounthub/internal/monitoring"
)

const cacheProbeKey = "health:probe"

var probeValue = []byte("ok")

// Cache returns a readiness probe that round-trips a short-lived key through
// the shared store. A failing cache only degrades the service since rate
// limiting is its sole consumer.
func Cache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "cache disabled"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		err := roundTrip(probeCtx, store)
		result := monitoring.ResultFromError("cache", err, time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}

func roundTrip(ctx context.Context, store cache.Store) error {
	if err := store.Set(ctx, cacheProbeKey, probeValue, time.Minute); err != nil {
		return err
	}
	value, ok, err := store.Get(ctx, cacheProbeKey)
	if err != nil {
		return err
	}
	if !ok || !bytes.Equal(value, probeValue) {
		return errors.New("probe value not readable")
	}
	return nil
}
