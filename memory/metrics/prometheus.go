// Package metrics exports Block Table activity to Prometheus.
//
//	obs := metrics.NewPrometheusObserver(prometheus.DefaultRegisterer)
//	m, _ := memory.New(&memory.Options{Observer: obs})
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshuapare/buddykit/memory"
	"github.com/joshuapare/buddykit/pkg/types"
)

const namespace = "buddykit"

// PrometheusObserver implements memory.Observer.
type PrometheusObserver struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	relocations prometheus.Counter
	insertSize  prometheus.Histogram

	freeBytes       prometheus.Gauge
	allocatedBytes  prometheus.Gauge
	payloadBytes    prometheus.Gauge
	freeBlocks      prometheus.Gauge
	allocatedBlocks prometheus.Gauge
	largestFree     prometheus.Gauge
	splits          prometheus.Gauge
	merges          prometheus.Gauge
}

var _ memory.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg leaves them unregistered. Panics if registration fails, like
// prometheus.MustRegister.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of block table operations",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Block table operations by outcome",
		}, []string{"op", "status"}),
		relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocations_total",
			Help:      "Updates that moved data to a new block",
		}),
		insertSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_request_bytes",
			Help:      "Requested insert sizes",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		freeBytes:       newGauge("arena_free_bytes", "Bytes held in free blocks"),
		allocatedBytes:  newGauge("arena_allocated_bytes", "Bytes held in allocated blocks, padding included"),
		payloadBytes:    newGauge("arena_payload_bytes", "Bytes stored by callers"),
		freeBlocks:      newGauge("arena_free_blocks", "Number of free blocks"),
		allocatedBlocks: newGauge("arena_allocated_blocks", "Number of allocated blocks"),
		largestFree:     newGauge("arena_largest_free_bytes", "Size of the largest free block"),
		splits:          newGauge("allocator_splits", "Block splits since creation"),
		merges:          newGauge("allocator_merges", "Buddy merges since creation"),
	}

	if reg != nil {
		reg.MustRegister(
			o.opLatency, o.ops, o.relocations, o.insertSize,
			o.freeBytes, o.allocatedBytes, o.payloadBytes,
			o.freeBlocks, o.allocatedBlocks, o.largestFree,
			o.splits, o.merges,
		)
	}
	return o
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

// status maps an error to a low-cardinality label value.
func status(err error) string {
	if err == nil {
		return "success"
	}
	if k := types.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

func (o *PrometheusObserver) observe(op string, d time.Duration, err error) {
	s := status(err)
	o.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	o.ops.WithLabelValues(op, s).Inc()
}

// OnInsert implements memory.Observer.
func (o *PrometheusObserver) OnInsert(d time.Duration, size uint32, err error) {
	o.observe("insert", d, err)
	o.insertSize.Observe(float64(size))
}

// OnDelete implements memory.Observer.
func (o *PrometheusObserver) OnDelete(d time.Duration, err error) {
	o.observe("delete", d, err)
}

// OnUpdate implements memory.Observer.
func (o *PrometheusObserver) OnUpdate(d time.Duration, relocated bool, err error) {
	o.observe("update", d, err)
	if relocated {
		o.relocations.Inc()
	}
}

// OnFind implements memory.Observer.
func (o *PrometheusObserver) OnFind(d time.Duration, err error) {
	o.observe("find", d, err)
}

// OnArenaStatus implements memory.Observer.
func (o *PrometheusObserver) OnArenaStatus(s memory.Stats) {
	o.freeBytes.Set(float64(s.FreeBytes))
	o.allocatedBytes.Set(float64(s.AllocatedBytes))
	o.payloadBytes.Set(float64(s.PayloadBytes))
	o.freeBlocks.Set(float64(s.FreeBlocks))
	o.allocatedBlocks.Set(float64(s.AllocatedBlocks))
	o.largestFree.Set(float64(s.LargestFree))
	o.splits.Set(float64(s.Alloc.Splits))
	o.merges.Set(float64(s.Alloc.Merges))
}
