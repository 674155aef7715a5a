package kalshi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks REST calls by endpoint and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_b_requests_total",
		Help: "Total venue B REST requests by endpoint and status",
	}, []string{"endpoint", "status"})

	// RequestDurationSeconds tracks REST call latency by endpoint.
	RequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossarb_venue_b_request_duration_seconds",
		Help:    "Duration of venue B REST requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// OrdersPlacedTotal tracks order submissions by result.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_venue_b_orders_placed_total",
		Help: "Total venue B order submissions by result",
	}, []string{"result"})
)
