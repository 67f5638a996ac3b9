package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charlesng35/accounthub/pkg/metrics"
)

const (
	// DefaultAPIURL is the ip-api.com JSON endpoint; %s receives the address.
	DefaultAPIURL = "http://ip-api.com/json/%s"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 64 << 10
)

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ISP        string `json:"isp"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

// HTTPOption customises an HTTPLocator.
type HTTPOption func(*HTTPLocator)

// WithHTTPClient overrides the client used for lookups.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(l *HTTPLocator) {
		if client != nil {
			l.client = client
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(l *HTTPLocator) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// HTTPLocator queries an ip-api compatible JSON endpoint.
type HTTPLocator struct {
	apiURL  string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPLocator builds a locator over apiURL, a format string with one %s verb.
func NewHTTPLocator(apiURL string, opts ...HTTPOption) (*HTTPLocator, error) {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if strings.Count(apiURL, "%s") != 1 {
		return nil, fmt.Errorf("geo: api url %q must contain exactly one %%s", apiURL)
	}

	l := &HTTPLocator{
		apiURL:  apiURL,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Locate performs one lookup.
func (l *HTTPLocator) Locate(ctx context.Context, ip string) (*Location, error) {
	if _, err := parseIP(ip); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		metrics.GeoLookupLatency.WithLabelValues(SourceHTTP).Observe(time.Since(started).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(l.apiURL, url.PathEscape(ip)), nil)
	if err != nil {
		return nil, fmt.Errorf("geo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("geo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, resp.StatusCode)
	}

	var payload ipAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}
	if payload.Status != "success" {
		message := payload.Message
		if message == "" {
			message = "status " + payload.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, message)
	}

	return &Location{
		IP:      ip,
		ISP:     payload.ISP,
		Country: payload.Country,
		Region:  payload.RegionName,
		City:    payload.City,
		Source:  SourceHTTP,
		Raw:     json.RawMessage(body),
	}, nil
}

// Name implements Locator.
func (l *HTTPLocator) Name() string {
	return SourceHTTP
}

var _ Locator = (*HTTPLocator)(nil)

