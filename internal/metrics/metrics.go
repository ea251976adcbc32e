package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts console API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipdesk_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// CarrierRequestDuration tracks calls made to the remote carrier API
	CarrierRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipdesk_carrier_request_duration_seconds",
			Help:    "Carrier API call latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint", "outcome"},
	)

	LocationCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipdesk_location_cache_lookups_total",
			Help: "Location cache lookups by category and result (hit/miss)",
		},
		[]string{"category", "result"},
	)

	LocationCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipdesk_location_cache_evictions_total",
			Help: "Location cache entries removed by reason (expired/capacity)",
		},
		[]string{"reason"},
	)

	LocationCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipdesk_location_cache_entries",
			Help: "Number of entries currently held by the location cache",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipdesk_active_sessions",
			Help: "Number of logged-in operator sessions",
		},
	)
)
