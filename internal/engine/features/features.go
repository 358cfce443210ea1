// Package features builds the tabular input row expected by a fitted column
// transformer from a problem record.
package features

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/crimson-sun/advisor/internal/engine/scalar"
	"github.com/crimson-sun/advisor/internal/model"
)

// Schema is the column layout a fitted transformer declares.
type Schema interface {
	TextFeature() string
	NumericalFeatures() []string
	CategoricalFeatures() []string
}

// Normalizer cleans free text.
type Normalizer interface {
	Normalize(text string) string
}

// Row is one assembled input row. Numeric values use NaN for missing;
// categorical values use nil for missing. Text is nil only for rows that were
// not produced by an Assembler.
type Row struct {
	TextColumn  string
	Text        *string
	Numeric     map[string]float64
	Categorical map[string]*string
}

// Columns returns the row's column names: text first, then numeric and
// categorical names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, 1+len(r.Numeric)+len(r.Categorical))
	if r.Text != nil {
		cols = append(cols, r.TextColumn)
	}
	cols = append(cols, sortedKeys(r.Numeric)...)
	return append(cols, sortedKeys(r.Categorical)...)
}

// derivation computes a numeric feature from the record and its cleaned text.
type derivation func(rec *model.ProblemRecord, text string) float64

var derivations = map[string]derivation{
	model.ColumnCostNumeric: func(rec *model.ProblemRecord, _ string) float64 {
		return parsed(scalar.ParseCost, rec.EstimatedCost)
	},
	model.ColumnBudgetNumeric: func(rec *model.ProblemRecord, _ string) float64 {
		return parsed(scalar.ParseCost, rec.OverallBudget)
	},
	model.ColumnTimeDays: func(rec *model.ProblemRecord, _ string) float64 {
		return parsed(scalar.ParseDurationDays, rec.EstimatedTime)
	},
	model.ColumnTextLength: func(_ *model.ProblemRecord, text string) float64 {
		return float64(len(strings.Fields(text)))
	},
}

// Assembler is stateless apart from its normalizer and is safe for
// concurrent use.
type Assembler struct {
	norm Normalizer
}

// NewAssembler creates an Assembler that cleans narrative text with norm.
func NewAssembler(norm Normalizer) *Assembler {
	return &Assembler{norm: norm}
}

// NarrativeText joins the non-empty narrative fields of rec with single
// spaces in the fixed narrative order.
func NarrativeText(rec *model.ProblemRecord) string {
	parts := lo.FilterMap(model.NarrativeFields, func(name string, _ int) (string, bool) {
		v, ok := rec.Lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	})
	return strings.Join(parts, " ")
}

// Assemble produces exactly the columns schema declares. Record fields the
// schema does not declare are ignored; declared fields the record lacks are
// filled with missing markers. rec is not modified.
func (a *Assembler) Assemble(rec model.ProblemRecord, schema Schema) Row {
	text := a.norm.Normalize(NarrativeText(&rec))
	row := Row{
		TextColumn:  schema.TextFeature(),
		Text:        &text,
		Numeric:     make(map[string]float64, len(schema.NumericalFeatures())),
		Categorical: make(map[string]*string, len(schema.CategoricalFeatures())),
	}
	for _, name := range schema.NumericalFeatures() {
		if derive, ok := derivations[name]; ok {
			row.Numeric[name] = derive(&rec, text)
			continue
		}
		row.Numeric[name] = lookupFloat(&rec, name)
	}
	for _, name := range schema.CategoricalFeatures() {
		if v, ok := rec.Lookup(name); ok {
			row.Categorical[name] = lo.ToPtr(v)
		} else {
			row.Categorical[name] = nil
		}
	}
	return row
}

func parsed(parse func(string) (float64, bool), v *string) float64 {
	if v == nil {
		return math.NaN()
	}
	if f, ok := parse(*v); ok {
		return f
	}
	return math.NaN()
}

func lookupFloat(rec *model.ProblemRecord, name string) float64 {
	v, ok := rec.Lookup(name)
	if !ok {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
