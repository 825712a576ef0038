// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	settlements      *prometheus.CounterVec
	verifyDuration   *prometheus.HistogramVec
	dispatchFailures *prometheus.CounterVec
	revocations      *prometheus.CounterVec
	scheduled        prometheus.Counter
	scheduleFailures prometheus.Counter
	webhookRejected  *prometheus.CounterVec
	gatherer         prometheus.Gatherer
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leasegate_settlements_total",
			Help: "Settlement attempts by outcome.",
		}, []string{"outcome"}),
		verifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leasegate_processor_verify_duration_seconds",
			Help:    "Histogram of payment processor verification latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leasegate_dispatch_failures_total",
			Help: "Control commands the ingress did not accept, by action.",
		}, []string{"action"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leasegate_revocations_total",
			Help: "Revocation jobs handled, by result.",
		}, []string{"result"}),
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leasegate_revocations_scheduled_total",
			Help: "Revocation jobs placed on the queue.",
		}),
		scheduleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leasegate_revocation_schedule_failures_total",
			Help: "Revocation jobs that could not be queued after a committed settlement.",
		}),
		webhookRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leasegate_webhook_rejections_total",
			Help: "Webhooks refused before reaching settlement, by reason.",
		}, []string{"reason"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.settlements,
		m.verifyDuration,
		m.dispatchFailures,
		m.revocations,
		m.scheduled,
		m.scheduleFailures,
		m.webhookRejected,
	)
	return m
}

// Handler serves the registry this Metrics was built with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Settlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveVerify(provider string, started time.Time) {
	if m == nil {
		return
	}
	m.verifyDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

func (m *Metrics) DispatchFailed(action string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(action).Inc()
}

func (m *Metrics) Revocation(result string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(result).Inc()
}

func (m *Metrics) Scheduled() {
	if m == nil {
		return
	}
	m.scheduled.Inc()
}

func (m *Metrics) ScheduleFailed() {
	if m == nil {
		return
	}
	m.scheduleFailures.Inc()
}

func (m *Metrics) WebhookRejected(reason string) {
	if m == nil {
		return
	}
	m.webhookRejected.WithLabelValues(reason).Inc()
}
