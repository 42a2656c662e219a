// Package prommetrics exposes arena metrics to Prometheus.
//
//	c := prommetrics.New(prometheus.DefaultRegisterer)
//	a, err := arenakit.New[int](64, 100_000, 1<<20, arenakit.WithMetricsCollector(c))
package prommetrics

import (
	"time"

	"github.com/hupe1980/arenakit"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "arenakit"

var _ arenakit.MetricsCollector = (*Collector)(nil)

// Collector implements arenakit.MetricsCollector on Prometheus metrics.
// A single Collector may be shared by many arenas.
type Collector struct {
	allocs       *prometheus.CounterVec
	chunks       prometheus.Counter
	chunkSlots   prometheus.Counter
	snapshots    prometheus.Counter
	resets       prometheus.Counter
	opLatency    *prometheus.HistogramVec
	encodedBytes *prometheus.CounterVec
}

// New creates a Collector and registers its metrics with reg. A nil reg
// leaves the metrics unregistered.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		allocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "allocations_total",
			Help:      "Total allocation attempts",
		}, []string{"status"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_allocated_total",
			Help:      "Total chunks appended",
		}),
		chunkSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunk_slots_allocated_total",
			Help:      "Total slots added by chunk growth",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "snapshots_total",
			Help:      "Total snapshot marks recorded",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resets_total",
			Help:      "Total arena resets",
		}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of encode and decode operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		encodedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frame_bytes_total",
			Help:      "Total bytes encoded or decoded",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(c.allocs, c.chunks, c.chunkSlots, c.snapshots, c.resets, c.opLatency, c.encodedBytes)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAlloc implements arenakit.MetricsCollector.
func (c *Collector) RecordAlloc(err error) {
	c.allocs.WithLabelValues(status(err)).Inc()
}

// RecordChunkGrowth implements arenakit.MetricsCollector.
func (c *Collector) RecordChunkGrowth(capacity int) {
	c.chunks.Inc()
	c.chunkSlots.Add(float64(capacity))
}

// RecordSnapshot implements arenakit.MetricsCollector.
func (c *Collector) RecordSnapshot() { c.snapshots.Inc() }

// RecordReset implements arenakit.MetricsCollector.
func (c *Collector) RecordReset() { c.resets.Inc() }

// RecordEncode implements arenakit.MetricsCollector.
func (c *Collector) RecordEncode(bytes int, d time.Duration, err error) {
	c.observe("encode", bytes, d, err)
}

// RecordDecode implements arenakit.MetricsCollector.
func (c *Collector) RecordDecode(bytes int, d time.Duration, err error) {
	c.observe("decode", bytes, d, err)
}

func (c *Collector) observe(op string, bytes int, d time.Duration, err error) {
	c.opLatency.WithLabelValues(op, status(err)).Observe(d.Seconds())
	if err == nil {
		c.encodedBytes.WithLabelValues(op).Add(float64(bytes))
	}
}
