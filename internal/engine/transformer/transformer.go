// Package transformer applies a fitted column transformer to structured
// problem features: standard scaling for numeric columns and one-hot encoding
// for categorical columns. The fitted parameters are read from a JSON artifact.
package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMissingFeature is returned when a declared feature has no value.
var ErrMissingFeature = errors.New("transformer: missing feature")

// Spec is the on-disk form of a fitted transformer.
type Spec struct {
	TextFeature string      `json:"text_feature"`
	Numerical   Numerical   `json:"numerical"`
	Categorical Categorical `json:"categorical"`
}

// Numerical declares standard-scaled columns.
type Numerical struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// Categorical declares one-hot encoded columns. Categories[i] lists the known
// values of Features[i] in output order.
type Categorical struct {
	Features   []string   `json:"features"`
	Categories [][]string `json:"categories"`
}

// Transformer is immutable after Load and safe for concurrent use.
type Transformer struct {
	spec     Spec
	catIndex []map[string]int
	offsets  []int
	width    int
}

// Load reads a transformer artifact from path.
func Load(path string) (*Transformer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transformer: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a transformer artifact.
func Parse(data []byte) (*Transformer, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("transformer: parse: %w", err)
	}
	return New(spec)
}

// New validates spec and precomputes the category lookup tables.
func New(spec Spec) (*Transformer, error) {
	if spec.TextFeature == "" {
		return nil, fmt.Errorf("transformer: text_feature is required")
	}
	n := len(spec.Numerical.Features)
	if len(spec.Numerical.Mean) != n || len(spec.Numerical.Scale) != n {
		return nil, fmt.Errorf("transformer: %d numerical features but %d means and %d scales",
			n, len(spec.Numerical.Mean), len(spec.Numerical.Scale))
	}
	if len(spec.Categorical.Categories) != len(spec.Categorical.Features) {
		return nil, fmt.Errorf("transformer: %d categorical features but %d category lists",
			len(spec.Categorical.Features), len(spec.Categorical.Categories))
	}

	seen := map[string]bool{spec.TextFeature: true}
	for _, name := range append(append([]string{}, spec.Numerical.Features...), spec.Categorical.Features...) {
		if seen[name] {
			return nil, fmt.Errorf("transformer: feature %q declared twice", name)
		}
		seen[name] = true
	}

	t := &Transformer{spec: spec, width: n}
	for _, cats := range spec.Categorical.Categories {
		idx := make(map[string]int, len(cats))
		for i, c := range cats {
			idx[c] = i
		}
		t.catIndex = append(t.catIndex, idx)
		t.offsets = append(t.offsets, t.width)
		t.width += len(cats)
	}
	return t, nil
}

// TextFeature returns the name of the text column.
func (t *Transformer) TextFeature() string { return t.spec.TextFeature }

// NumericalFeatures returns the declared numeric columns in order.
func (t *Transformer) NumericalFeatures() []string { return t.spec.Numerical.Features }

// CategoricalFeatures returns the declared categorical columns in order.
func (t *Transformer) CategoricalFeatures() []string { return t.spec.Categorical.Features }

// Width is the length of every vector produced by Transform.
func (t *Transformer) Width() int { return t.width }

// Transform encodes one row. numeric and categorical are keyed by feature
// name; every declared feature must be present. Unknown categories encode as
// all zeros. Output is the scaled numeric block followed by the one-hot
// blocks in declared order.
func (t *Transformer) Transform(numeric map[string]float64, categorical map[string]string) ([]float32, error) {
	out := make([]float32, t.width)
	for i, name := range t.spec.Numerical.Features {
		v, ok := numeric[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		scale := t.spec.Numerical.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = float32((v - t.spec.Numerical.Mean[i]) / scale)
	}
	for i, name := range t.spec.Categorical.Features {
		v, ok := categorical[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		if j, known := t.catIndex[i][v]; known {
			out[t.offsets[i]+j] = 1
		}
	}
	return out, nil
}
