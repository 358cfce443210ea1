package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Recognized problem record field names. These are also the column names used
// by historical datasets.
const (
	FieldProblemID                = "problem_id"
	FieldTitle                    = "title"
	FieldDescription              = "description_initial"
	FieldDomain                   = "domain"
	FieldComplexityLevel          = "complexity_level"
	FieldStatus                   = "status"
	FieldProblemSource            = "problem_source"
	FieldEstimatedCost            = "estimated_cost"
	FieldOverallBudget            = "overall_budget"
	FieldEstimatedTime            = "estimated_time_to_implement"
	FieldStakeholders             = "stakeholders_involved"
	FieldRefinedStatement         = "refined_problem_statement_final"
	FieldInitialImpact            = "initial_impact_assessment"
	FieldActiveListeningNotes     = "active_listening_notes"
	FieldKeyQuestions             = "key_questions_asked"
	FieldInitialHypotheses        = "initial_hypotheses"
	FieldKeyFindings              = "key_findings_from_analysis"
	FieldRootCauses               = "potential_root_causes_list"
	FieldSolutionDescription      = "solution_description"
	FieldJustification            = "justification_for_choice"
	FieldWhatWentWell             = "what_went_well"
	FieldWhatCouldBeImproved      = "what_could_be_improved"
	FieldRecommendationsForFuture = "recommendations_for_future"
	FieldKeyTakeaways             = "key_takeaways"
)

// descriptionAlias is accepted on input as a synonym for FieldDescription.
const descriptionAlias = "description"

// NarrativeFields lists the free-text fields concatenated into the processed
// text column, in concatenation order.
var NarrativeFields = []string{
	FieldTitle,
	FieldDescription,
	FieldRefinedStatement,
	FieldStakeholders,
	FieldInitialImpact,
	FieldProblemSource,
	FieldActiveListeningNotes,
	FieldKeyQuestions,
	FieldInitialHypotheses,
	FieldKeyFindings,
	FieldRootCauses,
	FieldSolutionDescription,
	FieldJustification,
	FieldWhatWentWell,
	FieldWhatCouldBeImproved,
	FieldRecommendationsForFuture,
	FieldKeyTakeaways,
}

// TopicFields lists the fields whose text is fed to the topic model.
var TopicFields = []string{FieldTitle, FieldDescription, FieldRefinedStatement}

// ProblemRecord is one problem report submitted for analysis. Every field is
// optional; a nil pointer means the field was absent. Unrecognized input keys
// are kept in Extra so that transformer-declared columns outside the fixed set
// can still be looked up.
type ProblemRecord struct {
	ProblemID *int64

	Title                    *string
	Description              *string
	Domain                   *string
	ComplexityLevel          *string
	Status                   *string
	ProblemSource            *string
	EstimatedCost            *string
	OverallBudget            *string
	EstimatedTime            *string
	Stakeholders             *string
	RefinedStatement         *string
	InitialImpact            *string
	ActiveListeningNotes     *string
	KeyQuestions             *string
	InitialHypotheses        *string
	KeyFindings              *string
	RootCauses               *string
	SolutionDescription      *string
	Justification            *string
	WhatWentWell             *string
	WhatCouldBeImproved      *string
	RecommendationsForFuture *string
	KeyTakeaways             *string

	Extra map[string]string
}

// textField binds a field name to its slot on a ProblemRecord.
type textField struct {
	name string
	slot func(*ProblemRecord) **string
}

var textFields = []textField{
	{FieldTitle, func(r *ProblemRecord) **string { return &r.Title }},
	{FieldDescription, func(r *ProblemRecord) **string { return &r.Description }},
	{FieldDomain, func(r *ProblemRecord) **string { return &r.Domain }},
	{FieldComplexityLevel, func(r *ProblemRecord) **string { return &r.ComplexityLevel }},
	{FieldStatus, func(r *ProblemRecord) **string { return &r.Status }},
	{FieldProblemSource, func(r *ProblemRecord) **string { return &r.ProblemSource }},
	{FieldEstimatedCost, func(r *ProblemRecord) **string { return &r.EstimatedCost }},
	{FieldOverallBudget, func(r *ProblemRecord) **string { return &r.OverallBudget }},
	{FieldEstimatedTime, func(r *ProblemRecord) **string { return &r.EstimatedTime }},
	{FieldStakeholders, func(r *ProblemRecord) **string { return &r.Stakeholders }},
	{FieldRefinedStatement, func(r *ProblemRecord) **string { return &r.RefinedStatement }},
	{FieldInitialImpact, func(r *ProblemRecord) **string { return &r.InitialImpact }},
	{FieldActiveListeningNotes, func(r *ProblemRecord) **string { return &r.ActiveListeningNotes }},
	{FieldKeyQuestions, func(r *ProblemRecord) **string { return &r.KeyQuestions }},
	{FieldInitialHypotheses, func(r *ProblemRecord) **string { return &r.InitialHypotheses }},
	{FieldKeyFindings, func(r *ProblemRecord) **string { return &r.KeyFindings }},
	{FieldRootCauses, func(r *ProblemRecord) **string { return &r.RootCauses }},
	{FieldSolutionDescription, func(r *ProblemRecord) **string { return &r.SolutionDescription }},
	{FieldJustification, func(r *ProblemRecord) **string { return &r.Justification }},
	{FieldWhatWentWell, func(r *ProblemRecord) **string { return &r.WhatWentWell }},
	{FieldWhatCouldBeImproved, func(r *ProblemRecord) **string { return &r.WhatCouldBeImproved }},
	{FieldRecommendationsForFuture, func(r *ProblemRecord) **string { return &r.RecommendationsForFuture }},
	{FieldKeyTakeaways, func(r *ProblemRecord) **string { return &r.KeyTakeaways }},
}

var textFieldIndex = func() map[string]textField {
	m := make(map[string]textField, len(textFields)+1)
	for _, f := range textFields {
		m[f.name] = f
	}
	m[descriptionAlias] = m[FieldDescription]
	return m
}()

// Lookup returns the string value of a named field. The bool is false when the
// field is absent. problem_id is rendered in base 10.
func (r *ProblemRecord) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	if name == FieldProblemID {
		if r.ProblemID == nil {
			return "", false
		}
		return strconv.FormatInt(*r.ProblemID, 10), true
	}
	if f, ok := textFieldIndex[name]; ok {
		if p := *f.slot(r); p != nil {
			return *p, true
		}
		return "", false
	}
	v, ok := r.Extra[name]
	return v, ok
}

// Set assigns a named field. Unrecognized names go to Extra. An invalid
// problem_id is an error.
func (r *ProblemRecord) Set(name, value string) error {
	if name == FieldProblemID {
		id, err := parseID(value)
		if err != nil {
			return fmt.Errorf("problem_id: %w", err)
		}
		r.ProblemID = &id
		return nil
	}
	if f, ok := textFieldIndex[name]; ok {
		v := value
		*f.slot(r) = &v
		return nil
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[name] = value
	return nil
}

// IsEmpty reports whether no field at all is present.
func (r *ProblemRecord) IsEmpty() bool {
	if r == nil {
		return true
	}
	if r.ProblemID != nil || len(r.Extra) > 0 {
		return false
	}
	for _, f := range textFields {
		if *f.slot(r) != nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r ProblemRecord) Clone() ProblemRecord {
	out := ProblemRecord{}
	if r.ProblemID != nil {
		id := *r.ProblemID
		out.ProblemID = &id
	}
	for _, f := range textFields {
		if p := *f.slot(&r); p != nil {
			v := *p
			*f.slot(&out) = &v
		}
	}
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// UnmarshalJSON accepts a flat JSON object. Strings, numbers and booleans are
// stored as text; null values are treated as absent.
func (r *ProblemRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*r = ProblemRecord{}
	for k, v := range raw {
		s, ok := scalarString(v)
		if !ok {
			continue
		}
		if err := r.Set(k, s); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes every present field as a flat object.
func (r ProblemRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(textFields)+len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.ProblemID != nil {
		out[FieldProblemID] = *r.ProblemID
	}
	for _, f := range textFields {
		if p := *f.slot(&r); p != nil {
			out[f.name] = *p
		}
	}
	// HTML escaping is left to the outer encoder.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// parseID accepts integral values, including float renderings such as "12.0"
// produced by spreadsheet exports.
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}
