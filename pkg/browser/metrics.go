package browser

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action outcomes recorded in metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics tracks browser counters on a Prometheus registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	sessionEvents   *prometheus.CounterVec
	recoveries      *prometheus.CounterVec
	indexedElements prometheus.Gauge
}

// NewMetrics registers the browser metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webpilot",
			Name:      "actions_total",
			Help:      "Executed browser actions by action and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webpilot",
			Name:      "action_duration_seconds",
			Help:      "Time spent executing browser actions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"action"}),
		sessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webpilot",
			Name:      "session_events_total",
			Help:      "Page lifecycle events processed by the session manager.",
		}, []string{"event"}),
		recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webpilot",
			Name:      "session_recoveries_total",
			Help:      "Local recoveries performed by the session manager.",
		}, []string{"kind"}),
		indexedElements: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "webpilot",
			Name:      "indexed_elements",
			Help:      "Number of options produced by the last indexing pass.",
		}),
	}
}

// RecordAction counts one executed action.
func (m *Metrics) RecordAction(action Action, success bool, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.actions.WithLabelValues(string(action), outcome).Inc()
	m.actionDuration.WithLabelValues(string(action)).Observe(latency.Seconds())
}

// RecordSessionEvent counts one processed lifecycle event.
func (m *Metrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}

// RecordRecovery counts one local recovery (switch, fallback, reload).
func (m *Metrics) RecordRecovery(kind string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(kind).Inc()
}

// RecordIndexed sets the size of the last option list.
func (m *Metrics) RecordIndexed(n int) {
	if m == nil {
		return
	}
	m.indexedElements.Set(float64(n))
}
