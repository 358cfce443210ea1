package embedder

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/advisor/internal/engine/safetensors"
)

func writeProjection(t *testing.T, withBias bool) string {
	t.Helper()
	tensors := map[string]safetensors.Tensor{
		// [outDim=2, inDim=3]
		"linear.weight": {Shape: []int{2, 3}, Data: []float32{1, 0, 0, 0, 1, 1}},
	}
	if withBias {
		tensors["linear.bias"] = safetensors.Tensor{Shape: []int{2}, Data: []float32{0.5, -1}}
	}
	path := filepath.Join(t.TempDir(), "dense.safetensors")
	if err := safetensors.Write(path, tensors); err != nil {
		t.Fatalf("write projection: %v", err)
	}
	return path
}

func TestLoadProjection(t *testing.T) {
	proj, err := loadProjection(writeProjection(t, false), identity)
	if err != nil {
		t.Fatalf("failed to load projection: %v", err)
	}
	if proj.inDim != 3 || proj.outDim != 2 {
		t.Errorf("dims = %dx%d, want 2x3", proj.outDim, proj.inDim)
	}
	if proj.bias != nil {
		t.Errorf("expected no bias, got %v", proj.bias)
	}

	out := proj.apply([]float32{2, 3, 4})
	if out[0] != 2 || out[1] != 7 {
		t.Errorf("apply = %v, want [2 7]", out)
	}
}

func TestProjectionBiasAndTanh(t *testing.T) {
	proj, err := loadProjection(writeProjection(t, true), tanh)
	if err != nil {
		t.Fatalf("failed to load projection: %v", err)
	}

	out := proj.apply([]float32{2, 3, 4})
	want := []float32{float32(math.Tanh(2.5)), float32(math.Tanh(6))}
	for i := range want {
		if !closeEnough(out[i], want[i]) {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestLoadProjectionMissingWeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.safetensors")
	if err := safetensors.Write(path, map[string]safetensors.Tensor{
		"other": {Shape: []int{1}, Data: []float32{1}},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadProjection(path, identity); err == nil {
		t.Fatal("expected error for missing linear.weight")
	}
}

func TestParseActivation(t *testing.T) {
	if a, err := parseActivation(""); err != nil || a != identity {
		t.Errorf("parseActivation(\"\") = %v, %v", a, err)
	}
	if a, err := parseActivation("tanh"); err != nil || a != tanh {
		t.Errorf("parseActivation(tanh) = %v, %v", a, err)
	}
	if _, err := parseActivation("gelu"); err == nil {
		t.Error("expected error for unsupported activation")
	}
}

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}
