package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks REST calls by endpoint and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_a_requests_total",
		Help: "Total venue A REST requests by endpoint and status",
	}, []string{"endpoint", "status"})

	// RequestDurationSeconds tracks REST call latency by endpoint.
	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossarb_venue_a_request_duration_seconds",
		Help:    "Duration of venue A REST requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// OrdersPlacedTotal tracks order submissions by path and result.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_a_orders_placed_total",
		Help: "Total venue A order submissions by path (direct/proxy) and result",
	}, []string{"path", "result"})

	// MetadataCacheHitsTotal tracks tick-size cache hits and misses.
	MetadataCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_a_metadata_cache_total",
		Help: "Total venue A metadata cache lookups by outcome",
	}, []string{"outcome"})
)
