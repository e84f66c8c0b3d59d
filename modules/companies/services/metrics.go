package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type importMetrics struct {
	runsTotal   *prometheus.CounterVec
	rowsTotal   *prometheus.CounterVec
	batchTotal  *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

var getImportMetrics = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companies_import",
			Name:      "runs_total",
			Help:      "Total number of import runs by variant and result.",
		}, []string{"variant", "result"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companies_import",
			Name:      "rows_total",
			Help:      "Rows seen by import runs by variant and outcome.",
		}, []string{"variant", "outcome"}),
		batchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companies_import",
			Name:      "batches_total",
			Help:      "Upsert batches by result.",
		}, []string{"result"}),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "companies_import",
			Name:      "run_duration_seconds",
			Help:      "Duration of import runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"variant"}),
	}
})
