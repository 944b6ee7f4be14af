package codelist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts service operations by name and outcome.
type Metrics struct {
	ops     *prometheus.CounterVec
	entries prometheus.Histogram
}

// NewMetrics registers the codelist collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codelist",
			Name:      "operations_total",
			Help:      "Codelist operations by operation and result.",
		}, []string{"op", "result"}),
		entries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "codelist",
			Name:      "entries",
			Help:      "Number of entries in a codelist after a mutation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	reg.MustRegister(m.ops, m.entries)
	return m
}

func (m *Metrics) observe(op string, cl *CodeList, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errorKindLabel(err)
	}
	m.ops.WithLabelValues(op, result).Inc()
	if cl != nil {
		m.entries.Observe(float64(cl.Len()))
	}
}
