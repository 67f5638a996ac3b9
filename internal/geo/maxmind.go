package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/charlesng35/accounthub/pkg/metrics"
)

// MaxMindLocator answers lookups from a local GeoLite2/GeoIP2 City database.
// ISP is not part of the City database and is left empty.
type MaxMindLocator struct {
	db *geoip2.Reader
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMindLocator, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("geo: maxmind database path is required")
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open maxmind database: %w", err)
	}
	return &MaxMindLocator{db: db}, nil
}

// Locate resolves ip from the local database.
func (l *MaxMindLocator) Locate(ctx context.Context, ip string) (*Location, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	record, err := l.db.City(parsed)
	metrics.GeoLookupLatency.WithLabelValues(SourceMaxMind).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if record.Country.IsoCode == "" && len(record.City.Names) == 0 {
		return nil, fmt.Errorf("%w: address not in database", ErrLookupFailed)
	}

	loc := &Location{
		IP:      ip,
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
		Source:  SourceMaxMind,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	if raw, err := json.Marshal(record); err == nil {
		loc.Raw = raw
	}
	return loc, nil
}

// Close releases the database.
func (l *MaxMindLocator) Close() error {
	return l.db.Close()
}

// Name implements Locator.
func (l *MaxMindLocator) Name() string {
	return SourceMaxMind
}

var _ Locator = (*MaxMindLocator)(nil)
