package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersOnPrivateRegistry(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAnalysis("ok", 20*time.Millisecond)
	m.ObserveAnalysis("ok", 30*time.Millisecond)
	m.ClusterPrediction(ResultDimension)
	m.TopicAssignment(ResultNoise)
	m.RecommendationWarning("no_cluster_peers")

	req.Equal(2.0, testutil.ToFloat64(m.Analyses.WithLabelValues("ok")))
	req.Equal(1.0, testutil.ToFloat64(m.ClusterPredictions.WithLabelValues(ResultDimension)))
	req.Equal(1.0, testutil.ToFloat64(m.TopicAssignments.WithLabelValues(ResultNoise)))
	req.Equal(1.0, testutil.ToFloat64(m.RecommendationWarnings.WithLabelValues("no_cluster_peers")))

	n, err := testutil.GatherAndCount(reg, "advisor_analysis_duration_seconds")
	req.NoError(err)
	req.Equal(1, n)
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveAnalysis("ok", time.Second)
		m.ClusterPrediction(ResultOK)
		m.TopicAssignment(ResultOK)
		m.RecommendationWarning("x")
	})
}
