package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records confirmation pipeline activity.
type FulfillmentMetrics struct {
	confirmations *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	stepFailures  *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	depletions    prometheus.Counter
	notifications *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the collectors on reg. A nil registerer yields
// a no-op recorder.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	m := &FulfillmentMetrics{
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fulfillment_confirmations_total",
			Help: "Transactions that passed the confirmation gate.",
		}, []string{"kind"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fulfillment_payment_callbacks_total",
			Help: "Payment gateway callbacks by outcome.",
		}, []string{"kind", "outcome"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fulfillment_step_failures_total",
			Help: "Best-effort confirmation steps that failed.",
		}, []string{"step"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fulfillment_step_duration_seconds",
			Help:    "Duration of confirmation steps in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		depletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_depletions_total",
			Help: "Products unpublished after stock reached zero.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.confirmations, m.callbacks, m.stepFailures, m.stepDuration, m.depletions, m.notifications)
	return m
}

func (m *FulfillmentMetrics) IncConfirmation(kind string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *FulfillmentMetrics) IncCallback(kind, outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *FulfillmentMetrics) IncStepFailure(step string) {
	if m == nil || m.stepFailures == nil {
		return
	}
	m.stepFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

func (m *FulfillmentMetrics) ObserveStep(step string, d time.Duration) {
	if m == nil || m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(normalizeLabel(step)).Observe(d.Seconds())
}

func (m *FulfillmentMetrics) IncDepletion() {
	if m == nil || m.depletions == nil {
		return
	}
	m.depletions.Inc()
}

// IncNotification counts one delivery; ok=false records a failure.
func (m *FulfillmentMetrics) IncNotification(ok bool) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
