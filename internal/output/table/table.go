// Package table renders reports as human-readable tables.
package table

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output"
)

// Output writes one table per report.
type Output struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a table Output on stdout.
func New() *Output {
	return NewWriter(os.Stdout)
}

// NewWriter creates a table Output on w.
func NewWriter(w io.Writer) *Output {
	return &Output{w: w}
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := tablewriter.NewWriter(o.w)
	t.SetHeader([]string{"Section", "Details"})
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetRowLine(true)
	t.AppendBulk(Rows(report))
	t.Render()

	if _, err := fmt.Fprintln(o.w); err != nil {
		return fmt.Errorf("table output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Rows flattens a report into section/detail pairs. Codes are rendered as
// English text here and nowhere else.
func Rows(r model.Report) [][]string {
	a := r.Analysis
	rows := [][]string{{"Request", a.RequestID}}
	if a.Error != "" {
		return append(rows, []string{"Error", output.ErrorText(a.Error)})
	}

	rows = append(rows,
		[]string{"Cluster", label(a.Cluster)},
		[]string{"Topic", topicLabel(a)},
		[]string{"Cluster profile", a.ClusterSummary},
		[]string{"Topic profile", a.TopicSummary},
	)
	if len(a.Degraded) > 0 {
		rows = append(rows, []string{"Degraded", strings.Join(lo.Map(a.Degraded, func(c model.ErrorCode, _ int) string {
			return output.ErrorText(c)
		}), "\n")})
	}

	b := r.Recommendations
	if len(b.Cluster) > 0 {
		rows = append(rows, []string{"From similar cluster", bullets(b.Cluster)})
	}
	if len(b.Topic) > 0 {
		rows = append(rows, []string{"From similar topic", bullets(b.Topic)})
	}
	if len(b.Warnings) > 0 {
		rows = append(rows, []string{"Notes", strings.Join(lo.Map(b.Warnings, func(w model.Warning, _ int) string {
			return output.WarningText(w)
		}), "\n")})
	}
	return rows
}

func label(id *int) string {
	if id == nil {
		return "-"
	}
	return strconv.Itoa(*id)
}

func topicLabel(a model.AnalysisResult) string {
	if a.Topic == nil {
		return "-"
	}
	if a.TopicProbability == nil {
		return label(a.Topic)
	}
	return fmt.Sprintf("%d (similarity %.2f)", *a.Topic, *a.TopicProbability)
}

func bullets(recs []model.Recommendation) string {
	return strings.Join(lo.Map(recs, func(r model.Recommendation, _ int) string {
		return "- " + r.String()
	}), "\n")
}
