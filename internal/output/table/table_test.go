package table

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/advisor/internal/model"
)

func report() model.Report {
	cluster, topic := 1, -1
	prob := 0.21
	return model.Report{
		Analysis: model.AnalysisResult{
			RequestID:        "req-9",
			Cluster:          &cluster,
			Topic:            &topic,
			TopicProbability: &prob,
			ClusterSummary:   "Cluster 1 (2 similar historical problems):\n- Average estimated cost ~ 2000.00.",
			TopicSummary:     "The problem did not match a specific topic.",
		},
		Recommendations: model.RecommendationBundle{
			Cluster: []model.Recommendation{
				{Kind: model.LessonPastSolution, Text: "Replace the toner"},
				{Kind: model.LessonWentWell, Text: "Fast vendor response"},
			},
			Warnings: []model.Warning{{Code: model.WarnNoiseTopic}},
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(report())
	sections := make([]string, len(rows))
	for i, r := range rows {
		require.Len(t, r, 2)
		sections[i] = r[0]
	}
	require.Equal(t, []string{"Request", "Cluster", "Topic", "Cluster profile", "Topic profile", "From similar cluster", "Notes"}, sections)
	require.Equal(t, "-1 (similarity 0.21)", rows[2][1])
	require.Equal(t, "- Past chosen solution: Replace the toner\n- What went well previously: Fast vendor response", rows[5][1])
	require.Contains(t, rows[6][1], "noise topic")
}

func TestRowsForInvalidInput(t *testing.T) {
	rows := Rows(model.Report{Analysis: model.AnalysisResult{RequestID: "r", Error: model.ErrInvalidInput}})
	require.Equal(t, [][]string{{"Request", "r"}, {"Error", "The problem record is empty."}}, rows)
}

func TestRowsDegraded(t *testing.T) {
	rows := Rows(model.Report{Analysis: model.AnalysisResult{Degraded: []model.ErrorCode{model.ErrClusterUnavailable}}})
	require.Equal(t, "-", rows[1][1])
	require.Equal(t, "Degraded", rows[5][0])
	require.Equal(t, "The cluster model is not loaded.", rows[5][1])
}

func TestWriteRendersTable(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriter(&buf)
	require.NoError(t, out.Write(context.Background(), report()))
	require.NoError(t, out.Close())

	s := buf.String()
	require.Contains(t, s, "SECTION")
	require.Contains(t, s, "req-9")
	require.Contains(t, s, "Replace the toner")
	require.Contains(t, s, "Average estimated cost ~ 2000.00.")
	require.True(t, strings.HasSuffix(s, "\n\n"))
}
