package topic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/advisor/internal/engine/safetensors"
)

// axisEmbedder embeds texts onto fixed axes so similarities are predictable.
type axisEmbedder struct {
	vecs  map[string][]float32
	dim   int
	panic bool
}

func (a *axisEmbedder) EmbedDim() int { return a.dim }

func (a *axisEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if a.panic {
		panic("session crashed")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := a.vecs[t]
		if !ok {
			v = make([]float32, a.dim)
		}
		out[i] = v
	}
	return out, nil
}

const tableJSON = `{
  "topics": [
    {"id": -1, "name": "-1_misc_other", "count": 12, "keywords": []},
    {"id": 0, "name": "0_printer_paper_toner", "count": 30,
     "keywords": [["printer", 0.9], ["paper", 0.5], ["toner", 0.4], ["jam", 0.3], ["tray", 0.2], ["ink", 0.1]]},
    {"id": 1, "name": "", "count": 8, "keywords": [["network", 0.8]]}
  ]
}`

func testEngine(t *testing.T, emb *axisEmbedder) *Engine {
	t.Helper()
	var table Table
	require.NoError(t, json.Unmarshal([]byte(tableJSON), &table))
	e, err := New(&table, [][]float32{{1, 0}, {0, 1}}, emb, 0.5, nil)
	require.NoError(t, err)
	return e
}

func newAxis() *axisEmbedder {
	return &axisEmbedder{dim: 2, vecs: map[string][]float32{
		"printer jam": {1, 0.1},
		"wifi down":   {0.1, 1},
		"ambiguous":   {1, 1.2},
		"unrelated":   {-1, -1},
	}}
}

func TestAssign(t *testing.T) {
	req := require.New(t)
	e := testEngine(t, newAxis())

	ids, probs, err := e.Assign([]string{"printer jam", "wifi down", "unrelated"})
	req.NoError(err)
	req.Equal([]int{0, 1, Noise}, ids)
	req.Len(probs, 3)
	req.Greater(probs[0], 0.9)
	req.Less(probs[2], 0.5)
}

func TestAssignEmptyInput(t *testing.T) {
	ids, probs, err := testEngine(t, newAxis()).Assign(nil)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Empty(t, probs)
}

func TestAssignRecoversFromPanic(t *testing.T) {
	emb := newAxis()
	emb.panic = true
	ids, probs, err := testEngine(t, emb).Assign([]string{"printer jam"})
	require.Error(t, err)
	require.Empty(t, ids)
	require.Empty(t, probs)
}

func TestTableThresholdOverrides(t *testing.T) {
	var table Table
	require.NoError(t, json.Unmarshal([]byte(tableJSON), &table))
	strict := 0.99
	table.OutlierThreshold = &strict
	e, err := New(&table, [][]float32{{1, 0}, {0, 1}}, newAxis(), 0.1, nil)
	require.NoError(t, err)
	require.Equal(t, 0.99, e.Threshold())

	ids, _, err := e.Assign([]string{"ambiguous"})
	require.NoError(t, err)
	require.Equal(t, []int{Noise}, ids)
}

func TestKeywords(t *testing.T) {
	req := require.New(t)
	e := testEngine(t, newAxis())

	kw := e.Keywords(0)
	req.Len(kw, 6)
	req.Equal(Keyword{Term: "printer", Weight: 0.9}, kw[0])

	req.Equal([]Keyword{{Term: NoiseKeyword, Weight: 1}}, e.Keywords(Noise))
	req.Empty(e.Keywords(42))

	var nilEngine *Engine
	req.Empty(nilEngine.Keywords(0))
}

func TestRepresentativeName(t *testing.T) {
	e := testEngine(t, newAxis())
	require.Equal(t, "0 printer paper toner", e.RepresentativeName(0))
	require.Equal(t, "Topic 1", e.RepresentativeName(1), "empty name falls back")
	require.Equal(t, "Topic 7", e.RepresentativeName(7))

	var nilEngine *Engine
	require.Equal(t, "Topic 3", nilEngine.RepresentativeName(3))
}

func TestNegativeIDsAreNoise(t *testing.T) {
	// The table has a -1 row but no -2 row; neither should matter.
	withRow := testEngine(t, newAxis())
	bare, err := New(&Table{Topics: []Info{{ID: 0, Name: "0_printer"}}}, [][]float32{{1, 0}}, newAxis(), 0.5, nil)
	require.NoError(t, err)

	noise := []Keyword{{Term: NoiseKeyword, Weight: 1}}
	for _, tc := range []struct {
		name string
		e    *Engine
		id   int
	}{
		{"-1 with table row", withRow, -1},
		{"-1 without table row", bare, -1},
		{"-2", withRow, -2},
		{"-2 without table row", bare, -2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, IsNoise(tc.id))
			require.Equal(t, NoiseKeyword, tc.e.RepresentativeName(tc.id))
			require.Equal(t, noise, tc.e.Keywords(tc.id))
		})
	}
	require.False(t, IsNoise(0))
}

func TestNewFailsClosed(t *testing.T) {
	var table Table
	require.NoError(t, json.Unmarshal([]byte(tableJSON), &table))

	_, err := New(&table, [][]float32{{1, 0}}, newAxis(), 0.5, nil)
	require.ErrorIs(t, err, ErrUnavailable, "embedding count must match topics")

	_, err = New(&table, [][]float32{{1, 0, 0}, {0, 1, 0}}, newAxis(), 0.5, nil)
	require.ErrorIs(t, err, ErrUnavailable, "embedding width must match embedder")

	_, err = New(nil, nil, newAxis(), 0.5, nil)
	require.ErrorIs(t, err, ErrUnavailable)

	var nilEngine *Engine
	_, _, err = nilEngine.Assign([]string{"x"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadArtifacts(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	tablePath := filepath.Join(dir, "topics.json")
	req.NoError(os.WriteFile(tablePath, []byte(tableJSON), 0o644))
	table, err := LoadTable(tablePath)
	req.NoError(err)
	req.Len(table.Topics, 3)
	req.Nil(table.OutlierThreshold)

	embPath := filepath.Join(dir, "topic_embeddings.safetensors")
	req.NoError(safetensors.Write(embPath, map[string]safetensors.Tensor{
		EmbeddingsTensor: {Shape: []int{2, 2}, Data: []float32{1, 0, 0, 1}},
	}))
	refs, err := LoadEmbeddings(embPath)
	req.NoError(err)
	req.Equal([][]float32{{1, 0}, {0, 1}}, refs)

	req.NoError(os.WriteFile(tablePath, []byte(`{"topics":[{"id":0,"keywords":[["only-term"]]}]}`), 0o644))
	_, err = LoadTable(tablePath)
	req.Error(err, "keyword pairs need a weight")

	_, err = LoadTable(filepath.Join(dir, "missing.json"))
	req.Error(err)
}
