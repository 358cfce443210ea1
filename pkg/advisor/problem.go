package advisor

import (
	"strconv"

	"github.com/crimson-sun/advisor/internal/model"
)

// Problem is a problem report to analyze. At least one of Title,
// Description or RefinedStatement must be set. Fields carries any other
// column by its dataset name, for example "complexity_level".
type Problem struct {
	ID               *int64            `json:"problem_id,omitempty"`
	Title            string            `json:"title,omitempty" validate:"required_without_all=Description RefinedStatement"`
	Description      string            `json:"description_initial,omitempty"`
	RefinedStatement string            `json:"refined_problem_statement_final,omitempty"`
	Domain           string            `json:"domain,omitempty"`
	EstimatedCost    string            `json:"estimated_cost,omitempty"`
	Fields           map[string]string `json:"fields,omitempty" validate:"omitempty,dive,keys,required,endkeys"`
}

func (p Problem) record() model.ProblemRecord {
	var rec model.ProblemRecord
	for k, v := range p.Fields {
		_ = rec.Set(k, v)
	}
	if p.ID != nil {
		_ = rec.Set(model.FieldProblemID, strconv.FormatInt(*p.ID, 10))
	}
	set := func(name, v string) {
		if v != "" {
			_ = rec.Set(name, v)
		}
	}
	set(model.FieldTitle, p.Title)
	set(model.FieldDescription, p.Description)
	set(model.FieldRefinedStatement, p.RefinedStatement)
	set(model.FieldDomain, p.Domain)
	set(model.FieldEstimatedCost, p.EstimatedCost)
	return rec
}

// Result is the analysis of one problem with its recommendations.
// Recommendation and warning strings are rendered in English.
type Result struct {
	RequestID          string   `json:"request_id"`
	Cluster            *int     `json:"cluster"`
	Topic              *int     `json:"topic"`
	TopicProbability   *float64 `json:"topic_probability,omitempty"`
	ClusterSummary     string   `json:"cluster_summary"`
	TopicSummary       string   `json:"topic_summary"`
	ClusterSuggestions []string `json:"cluster_suggestions,omitempty"`
	TopicSuggestions   []string `json:"topic_suggestions,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	Degraded           []string `json:"degraded,omitempty"`
}

// Topic describes one topic of the loaded topic model.
type Topic struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Keywords []string `json:"keywords"`
}
