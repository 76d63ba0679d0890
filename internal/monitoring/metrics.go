// Package monitoring collects Prometheus metrics for the pipeline and
// exposes an end-of-run snapshot for the CLI stats dump.
package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline metric set. Each pipeline instance owns its
// own registry so independent runs (and tests) never collide on metric
// registration.
type Metrics struct {
	registry *prometheus.Registry

	FramesEnqueued prometheus.Counter
	FramesDequeued prometheus.Counter
	Verdicts       *prometheus.CounterVec
	ProcessSeconds prometheus.Histogram
	CommitWait     prometheus.Histogram
	RingOccupancy  prometheus.Gauge

	startTime time.Time

	// Snapshot counters, kept separately because Prometheus counters
	// cannot be read back cheaply.
	framesIn  atomic.Int64
	framesOut atomic.Int64
	passed    atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// Snapshot is the JSON-serializable view of a finished run.
type Snapshot struct {
	FramesEnqueued int64   `json:"frames_enqueued"`
	FramesDequeued int64   `json:"frames_dequeued"`
	Passed         int64   `json:"passed"`
	Dropped        int64   `json:"dropped"`
	Failed         int64   `json:"failed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// NewMetrics creates a metric set backed by a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		FramesEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "firegate_frames_enqueued_total",
			Help: "Frames accepted into the ring buffer",
		}),
		FramesDequeued: factory.NewCounter(prometheus.CounterOpts{
			Name: "firegate_frames_dequeued_total",
			Help: "Frames pulled from the ring buffer by workers",
		}),
		Verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firegate_verdicts_total",
				Help: "Committed records by verdict",
			},
			[]string{"verdict"},
		),
		ProcessSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "firegate_process_duration_seconds",
			Help:    "Per-frame classification duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		CommitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "firegate_commit_wait_seconds",
			Help:    "Time a worker waits for its turn at the ledger front",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		RingOccupancy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "firegate_ring_occupancy_bytes",
			Help: "Bytes currently buffered in the ring",
		}),
	}
}

// RecordEnqueue counts one frame entering the ring.
func (m *Metrics) RecordEnqueue() {
	m.FramesEnqueued.Inc()
	m.framesIn.Add(1)
}

// RecordDequeue counts one frame leaving the ring.
func (m *Metrics) RecordDequeue() {
	m.FramesDequeued.Inc()
	m.framesOut.Add(1)
}

// RecordVerdict counts one committed record.
func (m *Metrics) RecordVerdict(verdict string, failed bool) {
	m.Verdicts.WithLabelValues(verdict).Inc()
	switch {
	case failed:
		m.failed.Add(1)
	case verdict == "PASS":
		m.passed.Add(1)
	default:
		m.dropped.Add(1)
	}
}

// Snapshot captures the current counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		FramesEnqueued: m.framesIn.Load(),
		FramesDequeued: m.framesOut.Load(),
		Passed:         m.passed.Load(),
		Dropped:        m.dropped.Load(),
		Failed:         m.failed.Load(),
		ElapsedSeconds: time.Since(m.startTime).Seconds(),
	}
}

// SnapshotJSON renders the snapshot with sonic.
func (m *Metrics) SnapshotJSON() ([]byte, error) {
	return sonic.Marshal(m.Snapshot())
}

// Handler serves this metric set in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
