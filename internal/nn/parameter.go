package nn

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// The underlying autodiff leaf keeps its identity for the lifetime of the
// parameter; Set overwrites the values in place so gradients requested with
// Value() as input keep working across weight restorations.
type Parameter struct {
	name  string          // Parameter name (e.g., "weight", "bias")
	value *autodiff.Value // Leaf variable holding the tensor
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:  name,
		value: autodiff.Variable(t),
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the autodiff leaf.
func (p *Parameter) Value() *autodiff.Value {
	return p.value
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.value.Data()
}

// Shape returns the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.value.Shape()
}

// Set overwrites the parameter values with t.
func (p *Parameter) Set(t *tensor.Tensor) error {
	if err := p.Tensor().CopyFrom(t); err != nil {
		return fmt.Errorf("parameter %s: %w", p.name, err)
	}
	return nil
}

// Clone returns an independent copy of the parameter.
func (p *Parameter) Clone() *Parameter {
	return NewParameter(p.name, p.Tensor().Clone())
}
