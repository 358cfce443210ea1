// Package profile renders short digests of the historical problems that share
// a cluster or topic with a new problem.
package profile

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/crimson-sun/advisor/internal/engine/topic"
	"github.com/crimson-sun/advisor/internal/model"
)

const (
	topCategorical   = 2
	minCategoryShare = 0.10
	topClusterTerms  = 7
	topTopicTerms    = 5
	unknownCategory  = "Unknown"
)

// NumericColumns are averaged in cluster summaries, in this order.
var NumericColumns = []struct {
	Column string
	Label  string
	Unit   string
}{
	{model.ColumnCostNumeric, "average estimated cost", ""},
	{model.ColumnBudgetNumeric, "average overall budget", ""},
	{model.ColumnTimeDays, "average estimated implementation time", " days"},
	{model.ColumnResolutionDays, "average resolution time", " days"},
}

// CategoricalColumns are profiled by their most frequent values.
var CategoricalColumns = []string{
	model.FieldDomain, model.FieldComplexityLevel, model.FieldStatus, model.FieldProblemSource,
}

// Messages returned instead of a profile.
const (
	MsgClusterUnavailable = "Cluster profile data is unavailable."
	MsgTopicUnavailable   = "The topic model is not loaded."
	MsgNoClusterAssigned  = "No cluster could be determined for this problem."
	MsgNoTopicAssigned    = "No topic could be determined for this problem."
)

// TopicModel is the part of the topic engine a summary needs.
type TopicModel interface {
	Available() bool
	Keywords(id int) []topic.Keyword
	RepresentativeName(id int) string
}

// Normalizer cleans free text.
type Normalizer interface {
	Normalize(text string) string
}

// Summarizer is safe for concurrent use.
type Summarizer struct {
	topics TopicModel
	norm   Normalizer
}

// New creates a Summarizer. norm cleans historical narrative text when the
// dataset carries no processed_text column; it may be nil, in which case raw
// text is tokenized on whitespace.
func New(topics TopicModel, norm Normalizer) *Summarizer {
	return &Summarizer{topics: topics, norm: norm}
}

// Cluster summarizes the historical problems assigned to clusterID.
func (s *Summarizer) Cluster(ds *model.Dataset, clusterID int) string {
	if ds == nil || !ds.HasColumn(model.ColumnCluster) {
		return MsgClusterUnavailable
	}
	group := lo.Filter(ds.Records, func(r model.HistoricalRecord, _ int) bool {
		return r.Cluster != nil && *r.Cluster == clusterID
	})
	if len(group) == 0 {
		return fmt.Sprintf("No known historical problems belong to cluster %d (0 peers).", clusterID)
	}

	header := fmt.Sprintf("Cluster %d (%d similar historical problems):", clusterID, len(group))
	parts := []string{header}

	var numeric []string
	for _, col := range NumericColumns {
		if !ds.HasColumn(col.Column) {
			continue
		}
		values := lo.FilterMap(group, func(r model.HistoricalRecord, _ int) (float64, bool) {
			return r.Number(col.Column)
		})
		if len(values) == 0 {
			continue
		}
		numeric = append(numeric, fmt.Sprintf("%s ~ %.2f%s", col.Label, lo.Mean(values), col.Unit))
	}
	if len(numeric) > 0 {
		parts = append(parts, "- "+capitalize(strings.Join(numeric, ", "))+".")
	}

	var categorical []string
	for _, col := range CategoricalColumns {
		if !ds.HasColumn(col) {
			continue
		}
		values := lo.FilterMap(group, func(r model.HistoricalRecord, _ int) (string, bool) {
			return r.Get(col)
		})
		if len(values) == 0 {
			continue
		}
		var top []string
		for _, c := range lo.Subset(rank(values), 0, topCategorical) {
			share := float64(c.n) / float64(len(values))
			if c.value != unknownCategory && share > minCategoryShare {
				top = append(top, fmt.Sprintf("%s (%.0f%%)", c.value, share*100))
			}
		}
		if len(top) > 0 {
			categorical = append(categorical, columnLabel(col)+": "+strings.Join(top, ", "))
		}
	}
	if len(categorical) > 0 {
		parts = append(parts, "- Common categorical traits: "+strings.Join(categorical, "; ")+".")
	}

	if terms := topTerms(s.groupTokens(ds, group), topClusterTerms); len(terms) > 0 {
		parts = append(parts, "- Top keywords in this cluster's texts: "+strings.Join(terms, ", ")+".")
	}

	if len(parts) == 1 {
		return header + " No further distinctive traits are recorded for this cluster yet."
	}
	return strings.Join(parts, "\n")
}

// Topic summarizes a topic from the topic model and the historical peer
// count. The noise id always yields a noise message with the peer count.
func (s *Summarizer) Topic(ds *model.Dataset, topicID int) string {
	if s.topics == nil || !s.topics.Available() {
		return MsgTopicUnavailable
	}
	peers := "an unknown number of"
	if ds != nil && ds.HasColumn(model.ColumnTopic) {
		n := lo.CountBy(ds.Records, func(r model.HistoricalRecord) bool {
			if r.Topic == nil {
				return false
			}
			if topic.IsNoise(topicID) {
				return topic.IsNoise(*r.Topic)
			}
			return *r.Topic == topicID
		})
		peers = strconv.Itoa(n)
	}

	if topic.IsNoise(topicID) {
		return fmt.Sprintf("The problem did not match a specific topic "+
			"(classified as a noise/outlier topic, which holds %s historical problems).", peers)
	}

	keywords := s.topics.Keywords(topicID)
	if len(keywords) == 0 {
		return fmt.Sprintf("No distinctive keywords are known for topic %d (%s historical problems).", topicID, peers)
	}
	terms := lo.Map(lo.Subset(keywords, 0, topTopicTerms), func(k topic.Keyword, _ int) string { return k.Term })
	return fmt.Sprintf("Topic %d (representative name: '%s'):\n- Covers %s similar historical problems.\n- Top keywords: %s.",
		topicID, s.topics.RepresentativeName(topicID), peers, strings.Join(terms, ", "))
}

// groupTokens returns the cleaned tokens of a group in record order.
func (s *Summarizer) groupTokens(ds *model.Dataset, group []model.HistoricalRecord) []string {
	var tokens []string
	if ds.HasColumn(model.ColumnProcessedText) {
		for _, r := range group {
			if v, ok := r.Get(model.ColumnProcessedText); ok {
				tokens = append(tokens, strings.Fields(v)...)
			}
		}
		return tokens
	}
	for _, r := range group {
		text := strings.Join(lo.FilterMap(model.NarrativeFields, func(f string, _ int) (string, bool) {
			return r.Get(f)
		}), " ")
		if s.norm != nil {
			text = s.norm.Normalize(text)
		}
		tokens = append(tokens, strings.Fields(text)...)
	}
	return tokens
}

type counted struct {
	value string
	n     int
}

// rank counts values and orders them by descending count. Ties keep the order
// in which values were first seen.
func rank(values []string) []counted {
	index := map[string]int{}
	var out []counted
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].n++
			continue
		}
		index[v] = len(out)
		out = append(out, counted{value: v, n: 1})
	}
	slices.SortStableFunc(out, func(a, b counted) int { return cmp.Compare(b.n, a.n) })
	return out
}

func topTerms(tokens []string, n int) []string {
	return lo.Map(lo.Subset(rank(tokens), 0, uint(n)), func(c counted, _ int) string { return c.value })
}

// columnLabel turns "complexity_level" into "Complexity level".
func columnLabel(col string) string {
	return capitalize(strings.ReplaceAll(col, "_", " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
