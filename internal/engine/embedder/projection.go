package embedder

import (
	"fmt"
	"math"

	"github.com/crimson-sun/advisor/internal/engine/safetensors"
)

type activation int

const (
	identity activation = iota
	tanh
)

func parseActivation(s string) (activation, error) {
	switch s {
	case "", "identity":
		return identity, nil
	case "tanh":
		return tanh, nil
	default:
		return identity, fmt.Errorf("unknown projection activation %q", s)
	}
}

// projection is a sentence-transformers Dense layer: out = act(W x + b).
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // nil when the layer has no bias
	act     activation
	inDim   int
	outDim  int
}

// loadProjection reads "linear.weight" and, when present, "linear.bias" from
// a safetensors file.
func loadProjection(path string, act activation) (*projection, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	w, err := f.Tensor("linear.weight")
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("projection: expected 2D weight, got shape %v", w.Shape)
	}
	p := &projection{weights: w.Data, act: act, outDim: w.Shape[0], inDim: w.Shape[1]}

	if f.Has("linear.bias") {
		b, err := f.Tensor("linear.bias")
		if err != nil {
			return nil, fmt.Errorf("projection: %w", err)
		}
		if len(b.Data) != p.outDim {
			return nil, fmt.Errorf("projection: bias length %d != output dim %d", len(b.Data), p.outDim)
		}
		p.bias = b.Data
	}
	return p, nil
}

// apply projects a single vector from inDim to outDim.
func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := 0; i < p.outDim; i++ {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		if p.bias != nil {
			sum += p.bias[i]
		}
		if p.act == tanh {
			sum = float32(math.Tanh(float64(sum)))
		}
		out[i] = sum
	}
	return out
}
