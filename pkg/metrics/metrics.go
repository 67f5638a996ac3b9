package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidationFailures counts rejected inputs by check (username|email|password) and reason.
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounthub_validation_failures_total",
			Help: "Total number of rejected validation checks",
		},
		[]string{"check", "reason"},
	)

	// VerificationEmails counts verification email outcomes (queued|delivered|failed|skipped|dropped).
	VerificationEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounthub_verification_emails_total",
			Help: "Total number of verification emails by outcome",
		},
		[]string{"result"},
	)

	// GeoLookups counts geolocation lookups by source and result: success, cached, or the failure reason
	// (timeout, rejected, invalid_ip, canceled, error) that forced a fallback record.
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounthub_geo_lookups_total",
			Help: "Total number of IP geolocation lookups",
		},
		[]string{"source", "result"},
	)

	// GeoLookupLatency measures locator round trips.
	GeoLookupLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounthub_geo_lookup_seconds",
			Help:    "IP geolocation lookup latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounthub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
