package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ragctx"

type metrics struct {
	indexed  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	chunks   prometheus.Counter
	queries  *prometheus.CounterVec
	latency  prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "documents_indexed_total",
			Help:      "Documents written to the store, by source",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "documents_rejected_total",
			Help:      "Index calls that left the store unchanged, by source",
		}, []string{"source"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chunks_appended_total",
			Help:      "Chunks appended to the chunk index",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queries_total",
			Help:      "Context queries, by outcome (hit, miss, error)",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent scoring the corpus for one query",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.indexed, m.rejected, m.chunks, m.queries, m.latency} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
