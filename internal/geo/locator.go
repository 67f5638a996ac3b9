// Package geo resolves IP addresses to coarse network and location data.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net"
)

// Locator sources.
const (
	SourceHTTP    = "ip-api"
	SourceMaxMind = "maxmind"
)

var (
	// ErrLookupFailed is returned when a provider answered but could not locate the address.
	ErrLookupFailed = errors.New("geo: lookup failed")
	// ErrInvalidIP is returned for input that does not parse as an IP address.
	ErrInvalidIP = errors.New("geo: invalid ip address")
)

// Location is the result of a successful lookup.
type Location struct {
	IP      string          `json:"ip"`
	ISP     string          `json:"isp,omitempty"`
	Country string          `json:"country,omitempty"`
	Region  string          `json:"region,omitempty"`
	City    string          `json:"city,omitempty"`
	Source  string          `json:"source"`
	Raw     json.RawMessage `json:"raw,omitempty"`

	// Cached is set when the answer came from a CachedLocator store.
	Cached bool `json:"-"`
}

// Locator resolves an IP address. Name identifies the provider in logs and metrics.
type Locator interface {
	Locate(ctx context.Context, ip string) (*Location, error)
	Name() string
}

// FailureReason classifies a lookup error into a short metric label.
func FailureReason(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidIP):
		return "invalid_ip"
	case errors.Is(err, ErrLookupFailed):
		return "rejected"
	default:
		return "error"
	}
}

func parseIP(ip string) (net.IP, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, ErrInvalidIP
	}
	return parsed, nil
}
