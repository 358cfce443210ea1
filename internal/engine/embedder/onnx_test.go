package embedder

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

// testModelDir holds an exported multilingual sentence encoder:
// model.onnx, vocab.txt, 2_Dense/model.safetensors and libonnxruntime.so.
const testModelDir = "../../../models"

func skipIfNoModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(testModelDir, "model.onnx")); os.IsNotExist(err) {
		t.Skip("model files not found; place an exported encoder under models/")
	}
}

func testConfig() Config {
	return Config{
		ModelPath:      filepath.Join(testModelDir, "model.onnx"),
		VocabPath:      filepath.Join(testModelDir, "vocab.txt"),
		ProjectionPath: filepath.Join(testModelDir, "2_Dense", "model.safetensors"),
		Activation:     "tanh",
	}
}

func TestValidateInputs(t *testing.T) {
	names, hasType, err := validateInputs([]ort.InputOutputInfo{
		{Name: "input_ids"}, {Name: "attention_mask"}, {Name: "token_type_ids"},
	})
	if err != nil {
		t.Fatalf("validateInputs: %v", err)
	}
	if !hasType || len(names) != 3 || names[2] != "token_type_ids" {
		t.Errorf("names = %v, hasType = %v", names, hasType)
	}

	names, hasType, err = validateInputs([]ort.InputOutputInfo{{Name: "attention_mask"}, {Name: "input_ids"}})
	if err != nil {
		t.Fatalf("validateInputs without token_type_ids: %v", err)
	}
	if hasType || len(names) != 2 || names[0] != "input_ids" {
		t.Errorf("names = %v, hasType = %v", names, hasType)
	}

	if _, _, err := validateInputs([]ort.InputOutputInfo{{Name: "input_ids"}}); err == nil {
		t.Error("expected error when attention_mask is missing")
	}
}

func TestNewRejectsUnknownActivation(t *testing.T) {
	_, err := New(Config{ModelPath: "x.onnx", VocabPath: "v.txt", Activation: "relu6"})
	if err == nil {
		t.Fatal("expected error for unknown activation")
	}
}

func TestNewBadVocabPath(t *testing.T) {
	_, err := New(Config{ModelPath: "/nonexistent/model.onnx", VocabPath: "/nonexistent/vocab.txt"})
	if err == nil {
		t.Fatal("expected error for missing vocab")
	}
}

func TestEmbedEndToEnd(t *testing.T) {
	skipIfNoModel(t)

	emb, err := New(testConfig())
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}
	defer emb.Close()

	vec, err := emb.Embed("الطابعة لا تستجيب")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != emb.EmbedDim() {
		t.Fatalf("expected %d-dim vector, got %d", emb.EmbedDim(), len(vec))
	}

	allZero := true
	for _, v := range vec {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("embedding is all zeros")
	}
}

func TestEmbedBatchMatchesSingle(t *testing.T) {
	skipIfNoModel(t)

	emb, err := New(testConfig())
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}
	defer emb.Close()

	texts := []string{"طابعة لا تطبع", "network outage in the main office after the upgrade"}
	vecs, err := emb.EmbedBatch(texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		single, err := emb.Embed(text)
		if err != nil {
			t.Fatalf("Embed(%d): %v", i, err)
		}
		for d := range single {
			// Padding changes attention numerics slightly.
			if math.Abs(float64(single[d]-vecs[i][d])) > 1e-4 {
				t.Fatalf("text %d dim %d: batch %v != single %v", i, d, vecs[i][d], single[d])
			}
		}
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	skipIfNoModel(t)

	emb, err := New(testConfig())
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}
	defer emb.Close()

	vecs, err := emb.EmbedBatch(nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil) failed: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty batch, got %v", vecs)
	}
}

func TestChooseOutput(t *testing.T) {
	tests := []struct {
		name    string
		outputs []ort.InputOutputInfo
		want    string
		wantErr bool
	}{
		{"hidden states only", []ort.InputOutputInfo{{Name: "last_hidden_state", Dimensions: ort.NewShape(-1, -1, 768)}}, "last_hidden_state", false},
		{"prefers sentence embedding", []ort.InputOutputInfo{
			{Name: "token_embeddings", Dimensions: ort.NewShape(-1, -1, 384)},
			{Name: "sentence_embedding", Dimensions: ort.NewShape(-1, 384)},
		}, "sentence_embedding", false},
		{"unknown name falls back to first", []ort.InputOutputInfo{{Name: "output_0", Dimensions: ort.NewShape(-1, -1, 8)}}, "output_0", false},
		{"dynamic hidden size", []ort.InputOutputInfo{{Name: "last_hidden_state", Dimensions: ort.NewShape(-1, -1, -1)}}, "", true},
		{"wrong rank", []ort.InputOutputInfo{{Name: "logits", Dimensions: ort.NewShape(-1)}}, "", true},
		{"no outputs", nil, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := chooseOutput(tc.outputs)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && got.Name != tc.want {
				t.Errorf("chose %q, want %q", got.Name, tc.want)
			}
		})
	}
}
