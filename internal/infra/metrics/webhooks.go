package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookSignatureFailures,
		webhookDuration,
		reconcilerStalePayments,
	)
}

var (
	// result: applied|noop|duplicate|discarded
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Verified webhook deliveries by event kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	webhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Webhook deliveries rejected for bad or missing signature.",
		},
	)

	webhookDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_apply_duration_seconds",
			Help:    "Duration of verified webhook event application.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	reconcilerStalePayments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconciler_stale_created_payments",
			Help: "Orders still in created state past the staleness threshold, from the last scan.",
		},
	)
)

func IncWebhookEvent(kind, result string) {
	webhookEventsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncWebhookSignatureFailure() { webhookSignatureFailures.Inc() }

func ObserveWebhookDuration(seconds float64) { webhookDuration.Observe(seconds) }

func SetReconcilerStalePayments(n int) { reconcilerStalePayments.Set(float64(n)) }
