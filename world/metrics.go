package world

import (
	"github.com/astei/anvilmesh/pool"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests prometheus.Counter
	loads    *prometheus.CounterVec
	chunks   prometheus.Gauge
	regions  prometheus.Gauge
	decode   prometheus.Histogram
	meshes   prometheus.Counter
	queued   prometheus.GaugeFunc
}

// newMetrics builds the world's collectors and registers them with reg when it is non-nil.
func newMetrics(reg prometheus.Registerer, p *pool.Pool) *metrics {
	m := &metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "requests_total",
			Help:      "Chunk requests accepted by the handle table.",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "loads_total",
			Help:      "Background chunk loads by result.",
		}, []string{"result"}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "chunks",
			Help:      "Chunks alive, resident or still referenced.",
		}),
		regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "regions",
			Help:      "Regions with at least one user.",
		}),
		decode: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "decode_seconds",
			Help:      "Time spent opening regions and decoding chunks.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		meshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "meshes_total",
			Help:      "Chunk meshes built.",
		}),
		queued: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "anvilmesh",
			Subsystem: "world",
			Name:      "queued_tasks",
			Help:      "Tasks waiting in the worker pool.",
		}, func() float64 { return float64(p.Len()) }),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.loads, m.chunks, m.regions, m.decode, m.meshes, m.queued)
	}
	return m
}
