package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeRecorded   = "recorded"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
)

// Metrics counts tracking outcomes per event kind.
type Metrics struct {
	events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizdir",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Analytics events by kind and outcome (recorded, suppressed, failed).",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) observe(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}
