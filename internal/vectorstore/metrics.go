package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutord",
		Subsystem: "vectorstore",
		Name:      "queries_total",
		Help:      "Total vector store queries by backend and status.",
	}, []string{"backend", "status"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tutord",
		Subsystem: "vectorstore",
		Name:      "query_duration_seconds",
		Help:      "Vector store query latency by backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend"})

	writeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutord",
		Subsystem: "vectorstore",
		Name:      "writes_total",
		Help:      "Total vector store write batches by backend and status.",
	}, []string{"backend", "status"})
)

func recordQuery(backend, status string, d time.Duration) {
	queryTotal.WithLabelValues(backend, status).Inc()
	if status == "ok" {
		queryDuration.WithLabelValues(backend).Observe(d.Seconds())
	}
}

func recordWrite(backend, status string) {
	writeTotal.WithLabelValues(backend, status).Inc()
}
