package embedder

import (
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide and can be initialized once.
var (
	ortOnce sync.Once
	ortErr  error
)

func initORT(libPath string) error {
	ortOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// Output names in preference order. sentence-transformers exports carry a
// pooled sentence_embedding next to the token states; plain HF exports only
// have last_hidden_state.
var preferredOutputs = []string{"sentence_embedding", "last_hidden_state", "token_embeddings"}

// onnxSession runs a BERT-family encoder. pooled means the chosen output is
// already [batch, dim] and mean pooling is skipped.
type onnxSession struct {
	session  *ort.DynamicAdvancedSession
	output   string
	embedDim int64
	pooled   bool
	hasTypes bool
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	inputNames, hasTypes, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}
	out, err := chooseOutput(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	_ = opts.SetIntraOpNumThreads(4)
	_ = opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	dims := out.Dimensions
	return &onnxSession{
		session:  sess,
		output:   out.Name,
		embedDim: dims[len(dims)-1],
		pooled:   len(dims) == 2,
		hasTypes: hasTypes,
	}, nil
}

// validateInputs requires input_ids and attention_mask. token_type_ids is
// fed only when the model declares it.
func validateInputs(inputs []ort.InputOutputInfo) ([]string, bool, error) {
	declared := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		declared[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask"}
	for _, name := range names {
		if !declared[name] {
			return nil, false, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	if declared["token_type_ids"] {
		return append(names, "token_type_ids"), true, nil
	}
	return names, false, nil
}

// chooseOutput picks a pooled [batch, dim] or token-level [batch, seq, dim]
// output with a static hidden size.
func chooseOutput(outputs []ort.InputOutputInfo) (ort.InputOutputInfo, error) {
	if len(outputs) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("onnx: model has no outputs")
	}
	out := outputs[0]
	for _, name := range preferredOutputs {
		if i := slices.IndexFunc(outputs, func(o ort.InputOutputInfo) bool { return o.Name == name }); i >= 0 {
			out = outputs[i]
			break
		}
	}
	dims := out.Dimensions
	if len(dims) != 2 && len(dims) != 3 {
		return out, fmt.Errorf("onnx: output %q has shape %v, want 2 or 3 dims", out.Name, dims)
	}
	if dims[len(dims)-1] <= 0 {
		return out, fmt.Errorf("onnx: output %q hidden size must be static, got %v", out.Name, dims)
	}
	return out, nil
}

// infer runs the encoder and returns the chosen output flattened:
// [batch * dim] when pooled, else [batch * seq * dim].
func (s *onnxSession) infer(batch tokenized) ([]float32, error) {
	if s == nil || s.session == nil {
		return nil, errNoSession
	}
	shape := ort.NewShape(batch.batchSize, batch.seqLen)

	feeds := [][]int64{batch.inputIDs, batch.attentionMask}
	if s.hasTypes {
		feeds = append(feeds, batch.tokenTypeIDs)
	}
	inputs := make([]ort.Value, 0, len(feeds))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, data := range feeds {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: input tensor: %w", err)
		}
		inputs = append(inputs, t)
	}

	outShape := ort.NewShape(batch.batchSize, batch.seqLen, s.embedDim)
	if s.pooled {
		outShape = ort.NewShape(batch.batchSize, s.embedDim)
	}
	out, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: run %s: %w", s.output, err)
	}
	return slices.Clone(out.GetData()), nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
