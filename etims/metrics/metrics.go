// Package metrics exposes batch processing counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etims"

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder owns a private registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	batchRuns      *prometheus.CounterVec
	lines          *prometheus.CounterVec
	fiscalDuration *prometheus.HistogramVec
	storeReceipts  prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Batch runs by result.",
		}, []string{"result"}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_lines_total",
			Help:      "Processed lines by outcome.",
		}, []string{"outcome"}),
		fiscalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fiscal_request_duration_seconds",
			Help:      "Time spent fiscalising a single line.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		storeReceipts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_receipts",
			Help:      "Receipts held by the store after the last commit.",
		}),
	}

	r.registry.MustRegister(
		r.batchRuns,
		r.lines,
		r.fiscalDuration,
		r.storeReceipts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) BatchRun(result string) {
	if r == nil {
		return
	}
	r.batchRuns.WithLabelValues(result).Inc()
}

func (r *Recorder) Line(outcome string) {
	if r == nil {
		return
	}
	r.lines.WithLabelValues(outcome).Inc()
}

func (r *Recorder) FiscalRequest(mode string, d time.Duration) {
	if r == nil {
		return
	}
	r.fiscalDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (r *Recorder) StoreSize(n int) {
	if r == nil {
		return
	}
	r.storeReceipts.Set(float64(n))
}

// Gatherer returns the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
