package research

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes per-node timings and fallback counts. A nil *Metrics is a no-op.
type Metrics struct {
	runs         prometheus.Counter
	nodeDuration *prometheus.HistogramVec
	fallbacks    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "search_agent",
			Name:      "runs_total",
			Help:      "Research runs started.",
		}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "search_agent",
			Name:      "node_duration_seconds",
			Help:      "Execution time of graph nodes.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"node"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "search_agent",
			Name:      "node_fallbacks_total",
			Help:      "Nodes that failed and resolved to their fallback value.",
		}, []string{"node"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.nodeDuration, m.fallbacks)
	}
	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

func (m *Metrics) observe(res NodeResult) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(res.Node).Observe(res.Duration.Seconds())
	if res.FellBack {
		m.fallbacks.WithLabelValues(res.Node).Inc()
	}
}
