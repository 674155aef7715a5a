package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsTotal tracks alerts raised by level and type.
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_alerting_alerts_total",
		Help: "Total alerts raised by level and type",
	}, []string{"level", "type"})

	// AlertsSuppressedTotal tracks alerts swallowed by the cooldown window.
	AlertsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_alerting_suppressed_total",
		Help: "Total alerts suppressed by the per-type cooldown",
	}, []string{"type"})

	// WebhookSentTotal tracks alerts delivered to the webhook.
	WebhookSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_alerting_webhook_sent_total",
		Help: "Total alerts delivered to the webhook",
	})

	// WebhookErrorsTotal tracks webhook delivery failures.
	WebhookErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_alerting_webhook_errors_total",
		Help: "Total webhook delivery failures",
	})
)
