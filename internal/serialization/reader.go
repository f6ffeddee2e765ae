package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// File is a decoded SafeTensors payload.
type File struct {
	Header Header
	data   []byte
}

// Read decodes a whole SafeTensors payload from r with strict validation.
func Read(r io.Reader) (*File, error) {
	return ReadWithLevel(r, ValidationStrict)
}

// ReadWithLevel decodes a SafeTensors payload from r.
func ReadWithLevel(r io.Reader, level ValidationLevel) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if err := ValidateHeader(&header, int64(len(data)), level); err != nil {
		return nil, err
	}

	return &File{Header: header, data: data}, nil
}

// ReadBytes decodes an in-memory payload.
func ReadBytes(b []byte) (*File, error) {
	return Read(bytes.NewReader(b))
}

// ReadFile decodes the SafeTensors file at path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: mask files are read from user-chosen paths
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return ReadBytes(b)
}

// Metadata returns the metadata map from the header.
func (f *File) Metadata() map[string]string {
	return f.Header.Metadata
}

// TensorNames returns all tensor names, sorted.
func (f *File) TensorNames() []string {
	names := make([]string, 0, len(f.Header.Tensors))
	for name := range f.Header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tensor decodes the named tensor into float64 values.
func (f *File) Tensor(name string) (*tensor.Tensor, error) {
	info, ok := f.Header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTensor, name)
	}

	shape := make(tensor.Shape, len(info.Shape))
	n := 1
	for i, d := range info.Shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor %s: negative dimension %d", name, d)
		}
		shape[i] = int(d)
		n *= int(d)
	}

	width, err := info.DType.Size()
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > int64(len(f.data)) {
		return nil, fmt.Errorf("%w: tensor %s [%d, %d]", ErrOutOfBounds, name, start, end)
	}
	raw := f.data[start:end]
	if len(raw) != n*width {
		return nil, fmt.Errorf("tensor %s: %d bytes for %d elements of %s", name, len(raw), n, info.DType)
	}

	out := make([]float64, n)
	switch info.DType {
	case DTypeF64:
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
		}
	case DTypeF32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
		}
	case DTypeU8:
		for i, b := range raw {
			out[i] = float64(b)
		}
	}
	return tensor.New(shape, out), nil
}

// Masks decodes the named tensors in the given order and checks they are binary.
func (f *File) Masks(names []string) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(names))
	for i, name := range names {
		t, err := f.Tensor(name)
		if err != nil {
			return nil, err
		}
		for _, v := range t.Data() {
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("tensor %s: %w", name, ErrNotBinary)
			}
		}
		out[i] = t
	}
	return out, nil
}

// StateDict decodes every tensor.
func (f *File) StateDict() (map[string]*tensor.Tensor, error) {
	out := make(map[string]*tensor.Tensor, len(f.Header.Tensors))
	for name := range f.Header.Tensors {
		t, err := f.Tensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}
