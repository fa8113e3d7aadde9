package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecisionMetrics counts authorization decisions.
type DecisionMetrics struct {
	decisions *prometheus.CounterVec
}

// NewDecisionMetrics registers the decision counter with reg.
// Guard labels come from route definitions, so their cardinality is fixed
// at startup.
func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	factory := promauto.With(reg)
	return &DecisionMetrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "rbac",
			Name:      "decisions_total",
			Help:      "Authorization decisions taken by route guards.",
		}, []string{"guard", "outcome"}),
	}
}

// ObserveDecision increments the counter for guard and outcome.
func (m *DecisionMetrics) ObserveDecision(guard, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(guard, outcome).Inc()
}
