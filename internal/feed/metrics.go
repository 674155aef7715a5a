package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal tracks quote updates by source event type.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_feed_updates_total",
			Help: "Total number of quote updates applied",
		},
		[]string{"event_type"},
	)

	// UpdatesDroppedTotal tracks update notifications dropped by reason.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_feed_updates_dropped_total",
			Help: "Total number of quote update notifications dropped",
		},
		[]string{"reason"},
	)

	// QuotesTracked tracks the number of quote snapshots in memory.
	QuotesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_feed_quotes_tracked",
		Help: "Number of quote snapshots tracked in memory",
	})

	// UpdateDurationSeconds tracks per-message apply latency.
	UpdateDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_feed_update_duration_seconds",
		Help:    "Duration of quote update processing",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
	})
)
