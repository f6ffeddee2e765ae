package tensor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// ParseDevice converts a device name ("cpu") into a Device.
func ParseDevice(name string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu":
		return CPU, nil
	default:
		return CPU, fmt.Errorf("unsupported device %q", name)
	}
}

// Tensor is a dense row-major float64 tensor.
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a tensor over data without copying it.
// Panics if the shape does not match len(data).
func New(shape Shape, data []float64) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	if shape.NumElements() != len(data) {
		panic(fmt.Sprintf("tensor.New: shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data)))
	}
	return &Tensor{shape: shape.Clone(), data: data}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Tensor{shape: shape.Clone(), data: buf}, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying row-major buffer.
// WARNING: Direct access to underlying memory. Writes are visible to every alias.
func (t *Tensor) Data() []float64 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Item returns the single value of a one-element tensor.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor.Item: tensor has %d elements", len(t.data)))
	}
	return t.data[0]
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(index ...int) float64 {
	return t.data[t.offset(index)]
}

// Set writes v at the given multi-dimensional index.
func (t *Tensor) Set(v float64, index ...int) {
	t.data[t.offset(index)] = v
}

func (t *Tensor) offset(index []int) int {
	if len(index) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index %v does not match shape %v", index, t.shape))
	}
	strides := t.shape.ComputeStrides()
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", index, t.shape))
		}
		off += idx * strides[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float64, len(t.data))
	copy(buf, t.data)
	return &Tensor{shape: t.shape.Clone(), data: buf}
}

// CopyFrom overwrites t with the values of src. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("copy: shape mismatch %v vs %v", t.shape, src.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Reshape returns a tensor with a new shape sharing the same buffer.
// One dimension may be -1 and is inferred.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	resolved, err := Shape(shape).Resolve(len(t.data))
	if err != nil {
		panic(fmt.Sprintf("tensor.Reshape: %v", err))
	}
	return &Tensor{shape: resolved, data: t.data}
}

// Flatten returns a 1-D view of t.
func (t *Tensor) Flatten() *Tensor {
	return &Tensor{shape: Shape{len(t.data)}, data: t.data}
}

// Slice returns rows [start, end) along the first dimension, copying the data.
func (t *Tensor) Slice(start, end int) *Tensor {
	if len(t.shape) == 0 || start < 0 || end > t.shape[0] || start >= end {
		panic(fmt.Sprintf("tensor.Slice: invalid range [%d, %d) for shape %v", start, end, t.shape))
	}
	row := len(t.data) / t.shape[0]
	shape := t.shape.Clone()
	shape[0] = end - start
	buf := make([]float64, (end-start)*row)
	copy(buf, t.data[start*row:end*row])
	return &Tensor{shape: shape, data: buf}
}

// Equal reports whether both tensors have the same shape and identical values.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.shape.Equal(other.shape) && floats.Equal(t.data, other.data)
}

// AllClose reports whether both tensors have the same shape and values within tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	return t.shape.Equal(other.shape) && floats.EqualApprox(t.data, other.data, tol)
}

// String renders small tensors for debugging.
func (t *Tensor) String() string {
	if len(t.data) > 16 {
		return fmt.Sprintf("Tensor%v[%g ... %g]", []int(t.shape), t.data[0], t.data[len(t.data)-1])
	}
	return fmt.Sprintf("Tensor%v%v", []int(t.shape), t.data)
}
