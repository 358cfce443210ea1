// Package cluster assigns problems to clusters of a fitted centroid model.
// The feature vector of a row is the column-transformer output followed by the
// sentence embedding of its text column, in that order.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/engine/classifier"
	"github.com/crimson-sun/advisor/internal/engine/features"
	"github.com/crimson-sun/advisor/internal/engine/safetensors"
)

// CentersTensor is the tensor name of the centroid matrix [k, d].
const CentersTensor = "cluster_centers"

// Unknown replaces missing categorical values before encoding.
const Unknown = "Unknown"

var (
	ErrUnavailable       = errors.New("cluster: engine unavailable")
	ErrSchema            = errors.New("cluster: input schema mismatch")
	ErrDimensionMismatch = errors.New("cluster: feature width does not match trained width")
)

// Transformer encodes the structured columns of a row.
type Transformer interface {
	features.Schema
	Transform(numeric map[string]float64, categorical map[string]string) ([]float32, error)
}

// TextEmbedder embeds a batch of texts, one vector per text in input order.
type TextEmbedder interface {
	EmbedBatch(texts []string) ([][]float32, error)
}

// Engine is immutable after New and safe for concurrent use. A nil *Engine is
// valid and reports ErrUnavailable.
type Engine struct {
	transformer Transformer
	embedder    TextEmbedder
	centroids   [][]float32
	width       int
	log         *zap.Logger
}

// New builds an engine from loaded components. All of them are required.
func New(tr Transformer, emb TextEmbedder, centroids [][]float32, log *zap.Logger) (*Engine, error) {
	if tr == nil || emb == nil {
		return nil, fmt.Errorf("%w: transformer and embedder are required", ErrUnavailable)
	}
	if len(centroids) == 0 {
		return nil, fmt.Errorf("%w: no centroids", ErrUnavailable)
	}
	width := len(centroids[0])
	for i, c := range centroids {
		if len(c) != width || width == 0 {
			return nil, fmt.Errorf("%w: centroid %d has width %d, want %d", ErrUnavailable, i, len(c), width)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{transformer: tr, embedder: emb, centroids: centroids, width: width, log: log}, nil
}

// LoadCentroids reads the centroid matrix from a safetensors file.
func LoadCentroids(path string) ([][]float32, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	t, err := f.Tensor(CentersTensor)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	rows, err := t.Rows()
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return rows, nil
}

// Available reports whether the engine can predict.
func (e *Engine) Available() bool { return e != nil }

// Width is the trained input width of the centroid model.
func (e *Engine) Width() int {
	if e == nil {
		return 0
	}
	return e.width
}

// Clusters is the number of centroids.
func (e *Engine) Clusters() int {
	if e == nil {
		return 0
	}
	return len(e.centroids)
}

// Schema returns the columns rows must carry.
func (e *Engine) Schema() features.Schema { return e.transformer }

// Predict returns one cluster label per row, in row order. Any failure
// returns no labels at all: callers must read an error as "no cluster", never
// as cluster 0. rows are not modified.
func (e *Engine) Predict(rows []features.Row) ([]int, error) {
	if e == nil {
		return nil, ErrUnavailable
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := e.validate(rows); err != nil {
		e.log.Warn("cluster prediction rejected", zap.Error(err))
		return nil, err
	}

	texts := make([]string, len(rows))
	structured := make([][]float32, len(rows))
	for i, row := range rows {
		num, cat := e.impute(row)
		vec, err := e.transformer.Transform(num, cat)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrSchema, err)
			e.log.Warn("cluster prediction rejected", zap.Error(err))
			return nil, err
		}
		structured[i] = vec
		texts[i] = *row.Text
	}

	embeddings, err := e.embedder.EmbedBatch(texts)
	if err != nil {
		e.log.Warn("cluster embedding failed", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, fmt.Errorf("cluster: embed: %w", err)
	}
	if len(embeddings) != len(rows) {
		return nil, fmt.Errorf("cluster: embedder returned %d vectors for %d rows", len(embeddings), len(rows))
	}

	labels := make([]int, len(rows))
	for i := range rows {
		vec := make([]float32, 0, len(structured[i])+len(embeddings[i]))
		vec = append(vec, structured[i]...)
		vec = append(vec, embeddings[i]...)
		if len(vec) != e.width {
			err := fmt.Errorf("%w: got %d, trained on %d", ErrDimensionMismatch, len(vec), e.width)
			e.log.Warn("cluster prediction rejected", zap.Error(err))
			return nil, err
		}
		labels[i] = classifier.Nearest(vec, e.centroids).Index
	}
	e.log.Debug("cluster prediction", zap.Int("rows", len(rows)), zap.Ints("labels", labels))
	return labels, nil
}

// validate checks that every declared column is present on every row.
func (e *Engine) validate(rows []features.Row) error {
	for i, row := range rows {
		var missing []string
		if row.Text == nil {
			missing = append(missing, e.transformer.TextFeature())
		}
		for _, name := range e.transformer.NumericalFeatures() {
			if _, ok := row.Numeric[name]; !ok {
				missing = append(missing, name)
			}
		}
		for _, name := range e.transformer.CategoricalFeatures() {
			if _, ok := row.Categorical[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: row %d missing columns %s", ErrSchema, i, strings.Join(missing, ", "))
		}
	}
	return nil
}

// impute returns working copies with NaN numerics set to 0 and missing
// categoricals set to Unknown.
func (e *Engine) impute(row features.Row) (map[string]float64, map[string]string) {
	num := make(map[string]float64, len(row.Numeric))
	for k, v := range row.Numeric {
		if math.IsNaN(v) {
			v = 0
		}
		num[k] = v
	}
	cat := make(map[string]string, len(row.Categorical))
	for k, v := range row.Categorical {
		if v == nil {
			cat[k] = Unknown
		} else {
			cat[k] = *v
		}
	}
	return num, cat
}
