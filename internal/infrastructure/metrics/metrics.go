package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ output.MetricsPort = (*Recorder)(nil)

type Recorder struct {
	stageDuration     *prometheus.HistogramVec
	verdicts          *prometheus.CounterVec
	groundingLinks    prometheus.Histogram
	unresolved        prometheus.Histogram
	reasoningFailures *prometheus.CounterVec
}

// NewRecorder registers the pipeline collectors on reg. Use a fresh
// prometheus.NewRegistry() per test.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vipra_stage_duration_seconds",
				Help:    "Duration of each analysis stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"stage"},
		),
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vipra_verdicts_total",
				Help: "Verdicts returned, by label and whether a fallback path produced them",
			},
			[]string{"label", "degraded"},
		),
		groundingLinks: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vipra_grounding_links",
				Help:    "Grounding links produced per analysis",
				Buckets: prometheus.LinearBuckets(0, 2, 10),
			},
		),
		unresolved: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vipra_unresolved_phrases",
				Help:    "Review phrases left unresolved per analysis",
				Buckets: prometheus.LinearBuckets(0, 2, 10),
			},
		),
		reasoningFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vipra_reasoning_failures_total",
				Help: "Failed reasoning model calls",
			},
			[]string{"reason"},
		),
	}
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObserveGrounding(links, unresolved int) {
	r.groundingLinks.Observe(float64(links))
	r.unresolved.Observe(float64(unresolved))
}

func (r *Recorder) CountVerdict(v entity.Verdict) {
	r.verdicts.WithLabelValues(string(v.Label), strconv.FormatBool(v.Degraded)).Inc()
}

func (r *Recorder) CountReasoningFailure(reason string) {
	r.reasoningFailures.WithLabelValues(reason).Inc()
}
