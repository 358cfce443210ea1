// Package topic assigns cleaned problem text to topics of a fitted topic
// model. A topic model is a topic-info table plus one embedding per topic;
// assignment is the best cosine match above an outlier threshold.
package topic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/engine/classifier"
	"github.com/crimson-sun/advisor/internal/engine/safetensors"
)

// Noise is the reserved id for text that matches no topic. Any negative id
// is treated as noise.
const Noise = classifier.Outlier

// IsNoise reports whether id is the noise sentinel.
func IsNoise(id int) bool { return id < 0 }

// EmbeddingsTensor is the tensor name of the topic embedding matrix [n, dim].
const EmbeddingsTensor = "topic_embeddings"

// NoiseKeyword is the single keyword reported for the noise topic.
const NoiseKeyword = "Noise/Outlier Topic"

var ErrUnavailable = errors.New("topic: engine unavailable")

// Keyword is a weighted topic term. It encodes as a [term, weight] pair.
type Keyword struct {
	Term   string
	Weight float64
}

func (k Keyword) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{k.Term, k.Weight})
}

func (k *Keyword) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("topic: keyword must be a [term, weight] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &k.Term); err != nil {
		return fmt.Errorf("topic: keyword term: %w", err)
	}
	if err := json.Unmarshal(pair[1], &k.Weight); err != nil {
		return fmt.Errorf("topic: keyword weight: %w", err)
	}
	return nil
}

// Info is one row of the topic-info table.
type Info struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Count    int       `json:"count"`
	Keywords []Keyword `json:"keywords"`
}

// Table is the on-disk topic-info artifact.
type Table struct {
	OutlierThreshold *float64 `json:"outlier_threshold,omitempty"`
	Topics           []Info   `json:"topics"`
}

// LoadTable reads a topic-info table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topic: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("topic: parse %s: %w", path, err)
	}
	return &t, nil
}

// LoadEmbeddings reads the topic embedding matrix from a safetensors file.
func LoadEmbeddings(path string) ([][]float32, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topic: %w", err)
	}
	t, err := f.Tensor(EmbeddingsTensor)
	if err != nil {
		return nil, fmt.Errorf("topic: %w", err)
	}
	rows, err := t.Rows()
	if err != nil {
		return nil, fmt.Errorf("topic: %w", err)
	}
	return rows, nil
}

// TextEmbedder embeds cleaned text.
type TextEmbedder interface {
	EmbedBatch(texts []string) ([][]float32, error)
	EmbedDim() int
}

// Engine is immutable after New and safe for concurrent use. A nil *Engine
// reports ErrUnavailable from Assign and empty results from lookups.
type Engine struct {
	embedder  TextEmbedder
	threshold float64
	topics    map[int]Info
	order     []Info // every entry of the table, in table order
	ids       []int  // ids[i] is the topic of refs[i]
	refs      [][]float32
	log       *zap.Logger
}

// New builds an engine from a loaded table and its embeddings. The
// embeddings must have one row per non-noise topic, in table order, and the
// embedder's width. threshold applies unless the table declares its own.
func New(table *Table, embeddings [][]float32, emb TextEmbedder, threshold float64, log *zap.Logger) (*Engine, error) {
	if table == nil || emb == nil {
		return nil, fmt.Errorf("%w: table and embedder are required", ErrUnavailable)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if table.OutlierThreshold != nil {
		threshold = *table.OutlierThreshold
	}

	e := &Engine{
		embedder:  emb,
		threshold: threshold,
		topics:    make(map[int]Info, len(table.Topics)),
		log:       log,
	}
	for _, info := range table.Topics {
		if _, dup := e.topics[info.ID]; dup {
			return nil, fmt.Errorf("%w: topic %d listed twice", ErrUnavailable, info.ID)
		}
		e.topics[info.ID] = info
		e.order = append(e.order, info)
		if info.ID != Noise {
			e.ids = append(e.ids, info.ID)
		}
	}
	if len(embeddings) != len(e.ids) {
		return nil, fmt.Errorf("%w: %d topic embeddings for %d topics", ErrUnavailable, len(embeddings), len(e.ids))
	}
	dim := emb.EmbedDim()
	for i, row := range embeddings {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: topic embedding %d has width %d, embedder produces %d",
				ErrUnavailable, i, len(row), dim)
		}
	}
	e.refs = embeddings
	return e, nil
}

// Available reports whether the engine can assign topics.
func (e *Engine) Available() bool { return e != nil }

// Threshold is the minimum similarity for a non-noise assignment.
func (e *Engine) Threshold() float64 {
	if e == nil {
		return 0
	}
	return e.threshold
}

// Topics returns the topic-info table in its original order.
func (e *Engine) Topics() []Info {
	if e == nil {
		return nil
	}
	return append([]Info(nil), e.order...)
}

// Assign returns a topic id and a pseudo-probability per text, in input
// order. Empty input is not an error. Failures inside the model are logged
// and reported as an empty result with an error; they never panic.
func (e *Engine) Assign(texts []string) (ids []int, probs []float64, err error) {
	if e == nil {
		return nil, nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ids, probs = nil, nil
			err = fmt.Errorf("topic: transform panicked: %v", r)
			e.log.Warn("topic assignment failed", zap.Error(err))
		}
	}()

	vecs, err := e.embedder.EmbedBatch(texts)
	if err != nil {
		e.log.Warn("topic assignment failed", zap.Error(err))
		return nil, nil, fmt.Errorf("topic: embed: %w", err)
	}
	if len(vecs) != len(texts) {
		err := fmt.Errorf("topic: embedder returned %d vectors for %d texts", len(vecs), len(texts))
		e.log.Warn("topic assignment failed", zap.Error(err))
		return nil, nil, err
	}

	ids = make([]int, len(texts))
	probs = make([]float64, len(texts))
	for i, v := range vecs {
		best := classifier.Cosine(v, e.refs, e.threshold)
		if best.Index == classifier.Outlier {
			ids[i] = Noise
		} else {
			ids[i] = e.ids[best.Index]
		}
		probs[i] = best.Score
	}
	e.log.Debug("topic assignment", zap.Int("texts", len(texts)), zap.Ints("topics", ids))
	return ids, probs, nil
}

// Keywords returns the ordered keywords of a topic. The noise id yields a
// single noise marker; unknown ids and an unavailable engine yield nil.
func (e *Engine) Keywords(id int) []Keyword {
	if e == nil {
		return nil
	}
	if IsNoise(id) {
		return []Keyword{{Term: NoiseKeyword, Weight: 1}}
	}
	info, ok := e.topics[id]
	if !ok {
		return nil
	}
	return append([]Keyword(nil), info.Keywords...)
}

// RepresentativeName returns the table name of a topic with underscores
// turned into spaces, or "Topic <id>" when the table has no usable name.
// Noise ids always get NoiseKeyword.
func (e *Engine) RepresentativeName(id int) string {
	if IsNoise(id) {
		return NoiseKeyword
	}
	fallback := "Topic " + strconv.Itoa(id)
	if e == nil {
		return fallback
	}
	info, ok := e.topics[id]
	if !ok {
		return fallback
	}
	name := strings.TrimSpace(strings.ReplaceAll(info.Name, "_", " "))
	if name == "" {
		return fallback
	}
	return name
}
