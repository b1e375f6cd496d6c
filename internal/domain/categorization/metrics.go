package categorization

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts how categories get chosen and how the AI call behaves.
type Metrics struct {
	decisions  *prometheus.CounterVec
	aiFailures *prometheus.CounterVec
	aiLatency  prometheus.Histogram
}

// NewMetrics registers the collectors on reg. A nil reg keeps them unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense",
			Name:      "categorizations_total",
			Help:      "Categorization decisions by the source that produced them.",
		}, []string{"source"}),
		aiFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "expense",
			Name:      "ai_classifier_failures_total",
			Help:      "AI classifier calls that fell back to keyword matching, by reason.",
		}, []string{"reason"}),
		aiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "expense",
			Name:      "ai_classifier_duration_seconds",
			Help:      "Latency of AI classifier calls, including failures.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.aiFailures, m.aiLatency)
	}
	return m
}

func (m *Metrics) observeDecision(source Source) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) observeAIFailure(reason UnavailableReason) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.aiFailures.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeAILatency(seconds float64) {
	if m == nil {
		return
	}
	m.aiLatency.Observe(seconds)
}
