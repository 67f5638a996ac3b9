package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounthub/internal/cache"
)

func newIPAPIServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/json/%s"
}

func TestHTTPLocatorSuccess(t *testing.T) {
	apiURL := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","isp":"Google LLC","country":"United States","regionName":"Virginia","city":"Ashburn"}`)
	})

	locator, err := NewHTTPLocator(apiURL)
	require.NoError(t, err)

	loc, err := locator.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	require.Equal(t, "Google LLC", loc.ISP)
	require.Equal(t, "United States", loc.Country)
	require.Equal(t, "Virginia", loc.Region)
	require.Equal(t, "Ashburn", loc.City)
	require.Equal(t, SourceHTTP, loc.Source)
	require.JSONEq(t, `{"status":"success","isp":"Google LLC","country":"United States","regionName":"Virginia","city":"Ashburn"}`, string(loc.Raw))
}

func TestHTTPLocatorFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		message string
	}{
		{
			name: "provider reports failure",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"status":"fail","message":"private range"}`)
			},
			message: "private range",
		},
		{
			name: "non json body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "<html>")
			},
			message: "decode response",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			message: "unexpected status 500",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			locator, err := NewHTTPLocator(newIPAPIServer(t, tc.handler))
			require.NoError(t, err)

			_, err = locator.Locate(context.Background(), "10.0.0.1")
			require.ErrorIs(t, err, ErrLookupFailed)
			require.ErrorContains(t, err, tc.message)
			require.Equal(t, "rejected", FailureReason(err))
		})
	}
}

func TestHTTPLocatorTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	apiURL := newIPAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	locator, err := NewHTTPLocator(apiURL, WithTimeout(30*time.Millisecond))
	require.NoError(t, err)

	_, err = locator.Locate(context.Background(), "1.1.1.1")
	require.Error(t, err)
	require.Equal(t, "timeout", FailureReason(err))
}

func TestHTTPLocatorRejectsInvalidIP(t *testing.T) {
	locator, err := NewHTTPLocator("")
	require.NoError(t, err)

	_, err = locator.Locate(context.Background(), "not-an-ip")
	require.ErrorIs(t, err, ErrInvalidIP)
	require.Equal(t, "invalid_ip", FailureReason(err))
}

func TestNewHTTPLocatorValidatesTemplate(t *testing.T) {
	_, err := NewHTTPLocator("http://example.com/json")
	require.Error(t, err)

	locator, err := NewHTTPLocator("  ")
	require.NoError(t, err)
	require.Equal(t, DefaultAPIURL, locator.apiURL)
	require.Equal(t, DefaultTimeout, locator.timeout)
}

func TestOpenMaxMindErrors(t *testing.T) {
	_, err := OpenMaxMind("")
	require.Error(t, err)

	_, err = OpenMaxMind(t.TempDir() + "/missing.mmdb")
	require.Error(t, err)
}

type countingLocator struct {
	calls atomic.Int32
	err   error
}

func (l *countingLocator) Locate(_ context.Context, ip string) (*Location, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return &Location{IP: ip, City: "Berlin", Source: "fake"}, nil
}

func (l *countingLocator) Name() string { return "fake" }

func TestCachedLocatorServesRepeatLookups(t *testing.T) {
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	inner := &countingLocator{}
	locator := NewCachedLocator(inner, store, time.Minute, nil)

	for i := 0; i < 3; i++ {
		loc, err := locator.Locate(context.Background(), "5.5.5.5")
		require.NoError(t, err)
		require.Equal(t, "Berlin", loc.City)
		require.Equal(t, i > 0, loc.Cached)
	}
	require.EqualValues(t, 1, inner.calls.Load())
	require.Equal(t, "fake", locator.Name())
}

func TestCachedLocatorDoesNotCacheFailures(t *testing.T) {
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	inner := &countingLocator{err: ErrLookupFailed}
	locator := NewCachedLocator(inner, store, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := locator.Locate(context.Background(), "5.5.5.5")
		require.ErrorIs(t, err, ErrLookupFailed)
	}
	require.EqualValues(t, 2, inner.calls.Load())
}

func TestFailureReason(t *testing.T) {
	require.Equal(t, "", FailureReason(nil))
	require.Equal(t, "timeout", FailureReason(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	require.Equal(t, "canceled", FailureReason(context.Canceled))
	require.Equal(t, "error", FailureReason(errors.New("boom")))
}
