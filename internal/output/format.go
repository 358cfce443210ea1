package output

import (
	"fmt"

	"github.com/crimson-sun/advisor/internal/model"
)

// WarningText renders a recommendation warning as an English sentence.
func WarningText(w model.Warning) string {
	switch w.Code {
	case model.WarnNoHistory:
		return "No historical data is loaded, so no recommendations can be made."
	case model.WarnClusterMissing:
		return "The problem was not assigned a cluster."
	case model.WarnClusterColumnMissing:
		return "The historical data has no cluster column."
	case model.WarnNoClusterPeers:
		return fmt.Sprintf("No other historical problems were found in cluster %d.", w.Params["cluster"])
	case model.WarnTopicMissing:
		return "The problem was not assigned a topic."
	case model.WarnTopicColumnMissing:
		return "The historical data has no topic column."
	case model.WarnNoTopicPeers:
		return fmt.Sprintf("No other historical problems were found in topic %d.", w.Params["topic"])
	case model.WarnNoiseTopic:
		return "The problem falls in the noise topic, which gives no specific recommendations."
	case model.WarnNoRecommendations:
		return "No specific recommendations were found in similar historical problems."
	default:
		return string(w.Code)
	}
}

// ErrorText renders an analysis error code as an English sentence.
func ErrorText(code model.ErrorCode) string {
	switch code {
	case model.ErrInvalidInput:
		return "The problem record is empty."
	case model.ErrClusterUnavailable:
		return "The cluster model is not loaded."
	case model.ErrClusterSchema:
		return "The problem data does not match the cluster model's expected columns."
	case model.ErrClusterDimensionMismatch:
		return "The cluster model was trained on a different feature width."
	case model.ErrClusterFailed:
		return "Cluster prediction failed."
	case model.ErrTopicUnavailable:
		return "The topic model is not loaded."
	case model.ErrTopicFailed:
		return "Topic assignment failed."
	default:
		return string(code)
	}
}
