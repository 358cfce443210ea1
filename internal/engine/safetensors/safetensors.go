// Package safetensors reads and writes F32 tensors in the safetensors format:
// an 8-byte little-endian header length, a JSON header mapping tensor names to
// dtype/shape/offsets, then the raw tensor bytes.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Tensor is a dense row-major F32 tensor.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Rows returns the tensor as a slice of rows. It requires a 2D shape.
func (t Tensor) Rows() ([][]float32, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("safetensors: expected 2D tensor, got shape %v", t.Shape)
	}
	n, d := t.Shape[0], t.Shape[1]
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = t.Data[i*d : (i+1)*d]
	}
	return rows, nil
}

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// File is a parsed safetensors file held in memory.
type File struct {
	header map[string]tensorMeta
	body   []byte
}

// Open reads and parses the file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	return Parse(data)
}

// Parse parses an in-memory safetensors file.
func Parse(data []byte) (*File, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &raw); err != nil {
		return nil, fmt.Errorf("safetensors: failed to parse header: %w", err)
	}

	f := &File{header: make(map[string]tensorMeta, len(raw)), body: data[8+headerLen:]}
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var meta tensorMeta
		if err := json.Unmarshal(msg, &meta); err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}
		f.header[name] = meta
	}
	return f, nil
}

// Has reports whether the file contains a tensor called name.
func (f *File) Has(name string) bool {
	_, ok := f.header[name]
	return ok
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.header))
	for n := range f.header {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Tensor decodes the named F32 tensor.
func (f *File) Tensor(name string) (Tensor, error) {
	meta, ok := f.header[name]
	if !ok {
		return Tensor{}, fmt.Errorf("safetensors: tensor %q not found in header", name)
	}
	if meta.Dtype != "F32" {
		return Tensor{}, fmt.Errorf("safetensors: tensor %q: expected dtype F32, got %s", name, meta.Dtype)
	}

	numFloats := 1
	for _, d := range meta.Shape {
		numFloats *= d
	}
	start, end := meta.DataOffsets[0], meta.DataOffsets[1]
	if end-start != numFloats*4 {
		return Tensor{}, fmt.Errorf("safetensors: tensor %q: data size %d doesn't match shape %v",
			name, end-start, meta.Shape)
	}
	if start < 0 || end > len(f.body) {
		return Tensor{}, fmt.Errorf("safetensors: tensor %q: data range [%d:%d] exceeds file size %d",
			name, start, end, len(f.body))
	}

	values := make([]float32, numFloats)
	for i := range values {
		off := start + i*4
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(f.body[off : off+4]))
	}
	return Tensor{Shape: meta.Shape, Data: values}, nil
}

// Write encodes tensors as a safetensors file at path. Tensors are laid out
// in name order.
func Write(path string, tensors map[string]Tensor) error {
	names := make([]string, 0, len(tensors))
	for n := range tensors {
		names = append(names, n)
	}
	sort.Strings(names)

	header := make(map[string]tensorMeta, len(tensors))
	var body []byte
	for _, name := range names {
		t := tensors[name]
		start := len(body)
		for _, v := range t.Data {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
		header[name] = tensorMeta{Dtype: "F32", Shape: t.Shape, DataOffsets: [2]int{start, len(body)}}
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, body...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	return nil
}
