package model

// ErrorCode is a stable, language-neutral failure marker. Rendering it into
// prose is left to the presentation layer.
type ErrorCode string

const (
	ErrInvalidInput             ErrorCode = "invalid_input"
	ErrClusterUnavailable       ErrorCode = "cluster_unavailable"
	ErrClusterSchema            ErrorCode = "cluster_schema_mismatch"
	ErrClusterDimensionMismatch ErrorCode = "cluster_dimension_mismatch"
	ErrClusterFailed            ErrorCode = "cluster_failed"
	ErrTopicUnavailable         ErrorCode = "topic_unavailable"
	ErrTopicFailed              ErrorCode = "topic_failed"
)

// AnalysisResult is the outcome of analyzing one problem record. Cluster and
// Topic are nil when the corresponding engine produced no assignment.
type AnalysisResult struct {
	RequestID        string        `json:"request_id"`
	Input            ProblemRecord `json:"input"`
	Cluster          *int          `json:"cluster"`
	Topic            *int          `json:"topic"`
	TopicProbability *float64      `json:"topic_probability,omitempty"`
	ClusterSummary   string        `json:"cluster_summary"`
	TopicSummary     string        `json:"topic_summary"`
	Error            ErrorCode     `json:"error,omitempty"`
	Degraded         []ErrorCode   `json:"degraded,omitempty"`
}

// WarningCode identifies a degraded recommendation condition.
type WarningCode string

const (
	WarnNoHistory            WarningCode = "no_history"
	WarnClusterMissing       WarningCode = "cluster_missing"
	WarnClusterColumnMissing WarningCode = "cluster_column_missing"
	WarnNoClusterPeers       WarningCode = "no_cluster_peers"
	WarnTopicMissing         WarningCode = "topic_missing"
	WarnTopicColumnMissing   WarningCode = "topic_column_missing"
	WarnNoTopicPeers         WarningCode = "no_topic_peers"
	WarnNoiseTopic           WarningCode = "noise_topic"
	WarnNoRecommendations    WarningCode = "no_recommendations"
)

// Warning is a code plus integer parameters such as the cluster or topic id.
type Warning struct {
	Code   WarningCode    `json:"code"`
	Params map[string]int `json:"params,omitempty"`
}

// LessonKind names the historical field a recommendation was drawn from.
type LessonKind string

const (
	LessonPastSolution LessonKind = "past_solution"
	LessonWentWell     LessonKind = "went_well"
	LessonCouldImprove LessonKind = "could_improve"
	LessonFutureAdvice LessonKind = "future_recommendation"
)

// Prefix returns the fixed label that marks the origin of a recommendation.
func (k LessonKind) Prefix() string {
	switch k {
	case LessonPastSolution:
		return "Past chosen solution"
	case LessonWentWell:
		return "What went well previously"
	case LessonCouldImprove:
		return "What could have been improved"
	case LessonFutureAdvice:
		return "Recommendations for the future from similar problems"
	default:
		return string(k)
	}
}

// Recommendation is one distinct solution or lesson string from a peer group.
type Recommendation struct {
	Kind LessonKind `json:"kind"`
	Text string     `json:"text"`
}

// String renders the recommendation with its origin prefix.
func (r Recommendation) String() string {
	return r.Kind.Prefix() + ": " + r.Text
}

// RecommendationBundle collects recommendations from the cluster and topic
// peer groups plus warnings describing anything that could not be matched.
type RecommendationBundle struct {
	Cluster  []Recommendation `json:"cluster"`
	Topic    []Recommendation `json:"topic"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// Report pairs an analysis with its recommendations.
type Report struct {
	Analysis        AnalysisResult       `json:"analysis"`
	Recommendations RecommendationBundle `json:"recommendations"`
}
