// Package observability exposes session and narration metrics over HTTP.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all Prometheus instruments used by a session. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	PhaseEntries      *prometheus.CounterVec
	LinesSpoken       *prometheus.CounterVec
	SynthesisFailures prometheus.Counter
	SynthesisLatency  prometheus.Histogram
	PlaybackFailures  prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// NewMetrics registers the instruments with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PhaseEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_entries_total",
			Help:      "Session phases entered, by phase.",
		}, []string{"phase"}),
		LinesSpoken: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_spoken_total",
			Help:      "Narration lines requested, by speech cache result.",
		}, []string{"cache"}),
		SynthesisFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failures_total",
			Help:      "Speech synthesis calls that failed.",
		}),
		SynthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Speech synthesis latency in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1600, 3200, 6400},
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_failures_total",
			Help:      "Queued narration that failed to play.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_depth",
			Help:      "Narration payloads waiting to play.",
		}),
	}
}

func (m *Metrics) PhaseEntered(phase string) {
	if m == nil {
		return
	}
	m.PhaseEntries.WithLabelValues(phase).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LinesSpoken.WithLabelValues(result).Inc()
}

func (m *Metrics) SynthesisFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
	if err != nil {
		m.SynthesisFailures.Inc()
	}
}

func (m *Metrics) PlaybackFailed() {
	if m == nil {
		return
	}
	m.PlaybackFailures.Inc()
}

func (m *Metrics) QueueDepthChanged(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
