package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictionsScored *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	patternCount      prometheus.Gauge
	engineLatency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictionsScored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessflow_predictions_scored_total",
				Help: "Total number of scored predictions by fallback tier and archetype",
			},
			[]string{"tier", "archetype"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		patternCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chessflow_pattern_count",
				Help: "Number of patterns currently held in the pattern database",
			},
		),
		engineLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chessflow_engine_eval_duration_seconds",
				Help:    "Duration of engine evaluations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),
	}
}

// RecordPredictionScored records a completed prediction attempt.
func (r *Recorder) RecordPredictionScored(tier, archetype string) {
	r.predictionsScored.WithLabelValues(tier, archetype).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordEngineLatency records one engine evaluation duration.
func (r *Recorder) RecordEngineLatency(result string, seconds float64) {
	r.engineLatency.WithLabelValues(result).Observe(seconds)
}

// RecordPatternCount records current pattern database size.
func (r *Recorder) RecordPatternCount(n int) {
	r.patternCount.Set(float64(n))
}
