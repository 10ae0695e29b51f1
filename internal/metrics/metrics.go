package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds the collectors shared by the ingestion job and the lookup server.
type Registry struct {
	reg *prometheus.Registry

	RowsRead      prometheus.Counter
	RowsSkipped   prometheus.Counter
	RowsWritten   prometheus.Counter
	Batches       *prometheus.CounterVec
	BatchLatency  prometheus.Histogram
	LastRunRows   prometheus.Gauge
	LookupResults *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rowsRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imdb_ingest_rows_read_total",
		Help: "Rows accepted by the dataset decoder.",
	})
	rowsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imdb_ingest_rows_skipped_total",
		Help: "Rows dropped for missing or malformed fields.",
	})
	rowsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imdb_ingest_rows_written_total",
		Help: "Rows applied by successful batch upserts.",
	})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imdb_ingest_batches_total",
		Help: "Batch upserts by outcome.",
	}, []string{"status"})
	batchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "imdb_ingest_batch_duration_seconds",
		Help:    "Latency of batch upserts.",
		Buckets: prometheus.DefBuckets,
	})
	lastRunRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "imdb_ingest_last_run_rows",
		Help: "Rows written by the most recent completed run.",
	})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imdb_lookup_requests_total",
		Help: "Lookup requests by outcome.",
	}, []string{"outcome"})

	r.MustRegister(rowsRead, rowsSkipped, rowsWritten, batches, batchLatency, lastRunRows, lookups)
	return &Registry{
		reg:           r,
		RowsRead:      rowsRead,
		RowsSkipped:   rowsSkipped,
		RowsWritten:   rowsWritten,
		Batches:       batches,
		BatchLatency:  batchLatency,
		LastRunRows:   lastRunRows,
		LookupResults: lookups,
	}
}

// MustRegister adds extra collectors, such as pool gauges owned by main.
func (r *Registry) MustRegister(cs ...prometheus.Collector) { r.reg.MustRegister(cs...) }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests and pushers.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Push sends the registry to a Prometheus Pushgateway under the given job name.
func (r *Registry) Push(url, job string) error {
	return push.New(url, job).Gatherer(r.reg).Push()
}
