// Package metrics exposes Prometheus counters and histograms for analyses,
// model predictions and recommendation warnings.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultSchema      = "schema_mismatch"
	ResultDimension   = "dimension_mismatch"
	ResultError       = "error"
	ResultNoise       = "noise"
	ResultSkipped     = "skipped"
)

// Metrics holds the advisor collectors. A nil *Metrics is valid and records
// nothing.
//
// Metrics:
//   - advisor_analyses_total{outcome}
//   - advisor_cluster_predictions_total{result}
//   - advisor_topic_assignments_total{result}
//   - advisor_recommendation_warnings_total{code}
//   - advisor_analysis_duration_seconds
type Metrics struct {
	Analyses               *prometheus.CounterVec
	ClusterPredictions     *prometheus.CounterVec
	TopicAssignments       *prometheus.CounterVec
	RecommendationWarnings *prometheus.CounterVec
	AnalysisDuration       prometheus.Histogram
}

// New registers the collectors on reg. A nil reg uses a private registry, so
// repeated calls never collide on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_analyses_total",
				Help: "Total number of problem analyses by outcome",
			},
			[]string{"outcome"}, // "ok", "degraded", "invalid_input"
		),
		ClusterPredictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cluster_predictions_total",
				Help: "Total number of cluster predictions by result",
			},
			[]string{"result"},
		),
		TopicAssignments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_topic_assignments_total",
				Help: "Total number of topic assignments by result",
			},
			[]string{"result"},
		),
		RecommendationWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_recommendation_warnings_total",
				Help: "Total number of recommendation warnings by code",
			},
			[]string{"code"},
		),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_analysis_duration_seconds",
			Help:    "Duration of a single problem analysis in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// ObserveAnalysis records one finished analysis.
func (m *Metrics) ObserveAnalysis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

func (m *Metrics) ClusterPrediction(result string) {
	if m == nil {
		return
	}
	m.ClusterPredictions.WithLabelValues(result).Inc()
}

func (m *Metrics) TopicAssignment(result string) {
	if m == nil {
		return
	}
	m.TopicAssignments.WithLabelValues(result).Inc()
}

func (m *Metrics) RecommendationWarning(code string) {
	if m == nil {
		return
	}
	m.RecommendationWarnings.WithLabelValues(code).Inc()
}
