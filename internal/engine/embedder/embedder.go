package embedder

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Embedder produces fixed-width sentence embeddings.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	EmbedDim() int
	Close() error
}

// Config locates the model files for an ONNXEmbedder.
type Config struct {
	ModelPath string
	VocabPath string
	// ProjectionPath is an optional sentence-transformers Dense layer in
	// safetensors form. Empty means the pooled output is returned as is.
	ProjectionPath string
	// Activation applied after the projection: "" / "identity" or "tanh".
	Activation string
	// LibraryPath is the ONNX Runtime shared library. Defaults to
	// libonnxruntime.so next to the model.
	LibraryPath string
	// Lowercase enables lowercasing and accent stripping in the tokenizer,
	// for uncased vocabularies.
	Lowercase bool
}

// ONNXEmbedder wraps the ONNX runtime, tokenizer, and optional projection
// layer for local embedding inference. It holds no per-call mutable state and
// is safe for concurrent use.
type ONNXEmbedder struct {
	session *onnxSession
	tok     *tokenizer
	proj    *projection
}

// New loads the ONNX model, vocabulary and projection weights. The pipeline
// is tokenize -> ONNX inference -> mean pool (unless the model already emits
// a sentence embedding) -> optional dense projection.
func New(cfg Config) (*ONNXEmbedder, error) {
	act, err := parseActivation(cfg.Activation)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(cfg.VocabPath, cfg.Lowercase)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	var proj *projection
	if cfg.ProjectionPath != "" {
		proj, err = loadProjection(cfg.ProjectionPath, act)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}

	lib := cfg.LibraryPath
	if lib == "" {
		lib = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	sess, err := newONNXSession(cfg.ModelPath, lib)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	if proj != nil && int(sess.embedDim) != proj.inDim {
		sess.close()
		return nil, fmt.Errorf("embedder: ONNX output dim %d != projection input dim %d",
			sess.embedDim, proj.inDim)
	}

	return &ONNXEmbedder{session: sess, tok: tok, proj: proj}, nil
}

// EmbedDim returns the final embedding dimensionality.
func (e *ONNXEmbedder) EmbedDim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return int(e.session.embedDim)
}

// Embed produces a single embedding vector for the given text.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch produces one embedding per text, in input order.
func (e *ONNXEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.tok.batch(texts)

	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := int(e.session.embedDim)
	var results [][]float32
	if e.session.pooled {
		results = make([][]float32, batch.batchSize)
		for i := range results {
			results[i] = hidden[i*dim : (i+1)*dim]
		}
	} else {
		results = meanPool(hidden, batch, dim)
	}
	if e.proj != nil {
		for i, vec := range results {
			results[i] = e.proj.apply(vec)
		}
	}
	return results, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}

var errNoSession = errors.New("onnx: session not initialized")
