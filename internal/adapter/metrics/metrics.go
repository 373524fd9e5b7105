// Package metrics holds the prometheus instruments of the refine engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Metrics holds Prometheus metrics for engine monitoring. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	SegmentsEmbedded prometheus.Counter
	EmbedErrors      prometheus.Counter
	QueueDepth       prometheus.Gauge
	RequestDuration  prometheus.Histogram
}

// New creates the engine metrics and registers them with reg.
func New(reg prometheus.Registerer, prefix string) (*Metrics, error) {
	if prefix == "" {
		prefix = "pagectx"
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_requests_total",
			Help: "Total refine requests by outcome",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_cache_hits_total",
			Help: "Requests served from cached segment embeddings",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_cache_misses_total",
			Help: "Requests whose text fingerprint changed",
		}),
		SegmentsEmbedded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_segments_embedded_total",
			Help: "Segments embedded by the provider",
		}),
		EmbedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_embed_errors_total",
			Help: "Provider embedding or similarity failures",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Requests waiting for the worker",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_request_duration_seconds",
			Help:    "Time spent processing a refine request on the worker",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.RequestsTotal, m.CacheHits, m.CacheMisses, m.SegmentsEmbedded,
			m.EmbedErrors, m.QueueDepth, m.RequestDuration,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) Request(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeDropped {
		m.RequestDuration.Observe(seconds)
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) SegmentEmbedded() {
	if m != nil {
		m.SegmentsEmbedded.Inc()
	}
}

func (m *Metrics) EmbedError() {
	if m != nil {
		m.EmbedErrors.Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
