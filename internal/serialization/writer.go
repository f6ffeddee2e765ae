package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Writer writes tensors in SafeTensors format to an io.Writer.
type Writer struct {
	w      io.Writer
	closer io.Closer
	closed bool
}

// NewWriter wraps w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Create creates (or truncates) the file at path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	//nolint:gosec // G304: mask files are written to user-chosen paths
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{w: file, closer: file}, nil
}

// Entry is one named tensor together with the dtype it is stored as.
type Entry struct {
	Name   string
	Tensor *tensor.Tensor
	DType  DType
}

// WriteStateDict writes every tensor of stateDict as F64.
// Tensors are written in alphabetical order by name.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.Tensor, metadata map[string]string) error {
	entries := make([]Entry, 0, len(stateDict))
	for name, t := range stateDict {
		entries = append(entries, Entry{Name: name, Tensor: t, DType: DTypeF64})
	}
	return w.WriteEntries(entries, metadata)
}

// WriteEntries writes the entries, sorted by name, with their own dtypes.
func (w *Writer) WriteEntries(entries []Entry, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := Header{Metadata: metadata, Tensors: make(map[string]TensorHeader, len(sorted))}
	var currentOffset int64
	for i, e := range sorted {
		if err := ValidateTensorName(e.Name); err != nil {
			return err
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return fmt.Errorf("duplicate tensor name %q", e.Name)
		}
		width, err := e.DType.Size()
		if err != nil {
			return fmt.Errorf("tensor %q: %w", e.Name, err)
		}
		size := int64(e.Tensor.NumElements() * width)

		shape := e.Tensor.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}

		header.Tensors[e.Name] = TensorHeader{
			DType:       e.DType,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	if err := binary.Write(w.w, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range sorted {
		data, err := encode(e.Tensor, e.DType)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", e.Name, err)
		}
		if _, err := w.w.Write(data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", e.Name, err)
		}
	}

	return nil
}

// Close closes the underlying file when the Writer was made by Create.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// WriteMasks writes one U8 tensor per name. names and masks are parallel.
func WriteMasks(w io.Writer, names []string, masks []*tensor.Tensor, metadata map[string]string) error {
	if len(names) != len(masks) {
		return fmt.Errorf("%d names for %d masks", len(names), len(masks))
	}
	entries := make([]Entry, len(masks))
	for i, m := range masks {
		entries[i] = Entry{Name: names[i], Tensor: m, DType: DTypeU8}
	}
	return NewWriter(w).WriteEntries(entries, metadata)
}

// WriteFile writes the entries to a file at path.
func WriteFile(path string, entries []Entry, metadata map[string]string) error {
	writer, err := Create(path)
	if err != nil {
		return err
	}
	if err := writer.WriteEntries(entries, metadata); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func encode(t *tensor.Tensor, dtype DType) ([]byte, error) {
	src := t.Data()
	switch dtype {
	case DTypeF64:
		out := make([]byte, 8*len(src))
		for i, v := range src {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
		}
		return out, nil
	case DTypeF32:
		out := make([]byte, 4*len(src))
		for i, v := range src {
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
		}
		return out, nil
	case DTypeU8:
		out := make([]byte, len(src))
		for i, v := range src {
			switch v {
			case 0:
			case 1:
				out[i] = 1
			default:
				return nil, fmt.Errorf("%w: %g at %d", ErrNotBinary, v, i)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, string(dtype))
	}
}
