// Package recommend selects past solutions and lessons learned from
// historical problems that share a cluster or topic with a new problem.
package recommend

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/model"
)

// DefaultTopN is the per-field limit used when a caller passes zero.
const DefaultTopN = 3

// lessonSources lists the historical fields recommendations are drawn from,
// in output order.
var lessonSources = []struct {
	kind  model.LessonKind
	field string
}{
	{model.LessonPastSolution, model.FieldSolutionDescription},
	{model.LessonWentWell, model.FieldWhatWentWell},
	{model.LessonCouldImprove, model.FieldWhatCouldBeImproved},
	{model.LessonFutureAdvice, model.FieldRecommendationsForFuture},
}

// Selector is stateless and safe for concurrent use.
type Selector struct {
	log *zap.Logger
}

// New creates a Selector. A nil logger discards output.
func New(log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{log: log}
}

// Recommend gathers up to topN distinct values per lesson field from the
// cluster peers and the topic peers of a problem. The row whose id equals
// currentID is never its own peer. Anything that prevented a match is
// reported as a warning code, never as an error.
func (s *Selector) Recommend(cluster, topic *int, ds *model.Dataset, currentID *int64, topN int) model.RecommendationBundle {
	if topN <= 0 {
		topN = DefaultTopN
	}
	var b model.RecommendationBundle
	if ds.Len() == 0 {
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnNoHistory})
		return b
	}

	switch {
	case cluster == nil:
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnClusterMissing})
	case !ds.HasColumn(model.ColumnCluster):
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnClusterColumnMissing})
	default:
		peers := Peers(ds, currentID, func(r model.HistoricalRecord) bool {
			return r.Cluster != nil && *r.Cluster == *cluster
		})
		if len(peers) == 0 {
			b.Warnings = append(b.Warnings, model.Warning{
				Code: model.WarnNoClusterPeers, Params: map[string]int{"cluster": *cluster},
			})
		} else {
			b.Cluster = extract(ds, peers, topN)
		}
		s.log.Debug("cluster peers", zap.Int("cluster", *cluster), zap.Int("peers", len(peers)))
	}

	switch {
	case topic == nil:
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnTopicMissing})
	case *topic < 0: // noise sentinel
		b.Warnings = append(b.Warnings, model.Warning{
			Code: model.WarnNoiseTopic, Params: map[string]int{"topic": *topic},
		})
	case !ds.HasColumn(model.ColumnTopic):
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnTopicColumnMissing})
	default:
		peers := Peers(ds, currentID, func(r model.HistoricalRecord) bool {
			return r.Topic != nil && *r.Topic == *topic
		})
		if len(peers) == 0 {
			b.Warnings = append(b.Warnings, model.Warning{
				Code: model.WarnNoTopicPeers, Params: map[string]int{"topic": *topic},
			})
		} else {
			b.Topic = extract(ds, peers, topN)
		}
		s.log.Debug("topic peers", zap.Int("topic", *topic), zap.Int("peers", len(peers)))
	}

	if len(b.Cluster) == 0 && len(b.Topic) == 0 && len(b.Warnings) == 0 {
		b.Warnings = append(b.Warnings, model.Warning{Code: model.WarnNoRecommendations})
	}
	return b
}

// Peers returns the records matching keep, excluding the record with
// currentID when it is set. Records without an id are always kept.
func Peers(ds *model.Dataset, currentID *int64, keep func(model.HistoricalRecord) bool) []model.HistoricalRecord {
	if ds == nil {
		return nil
	}
	return lo.Filter(ds.Records, func(r model.HistoricalRecord, _ int) bool {
		if currentID != nil && r.ProblemID != nil && *r.ProblemID == *currentID {
			return false
		}
		return keep(r)
	})
}

func extract(ds *model.Dataset, peers []model.HistoricalRecord, topN int) []model.Recommendation {
	var out []model.Recommendation
	for _, src := range lessonSources {
		if !ds.HasColumn(src.field) {
			continue
		}
		values := lo.Uniq(lo.FilterMap(peers, func(r model.HistoricalRecord, _ int) (string, bool) {
			return r.Get(src.field)
		}))
		if len(values) > topN {
			values = values[:topN]
		}
		for _, v := range values {
			out = append(out, model.Recommendation{Kind: src.kind, Text: v})
		}
	}
	return out
}
