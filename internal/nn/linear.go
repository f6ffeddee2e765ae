package nn

import (
	"fmt"
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear struct {
	name        string
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features] or nil
}

// NewLinear creates a new Linear layer with a bias.
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	return &Linear{
		name:        name,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(name+".weight", tensor.XavierUniform(weightShape, inFeatures, outFeatures, rng)),
		bias:        NewParameter(name+".bias", tensor.Zeros(tensor.Shape{outFeatures})),
	}
}

// Forward computes y = x @ W.T + b and records y.
func (l *Linear) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear %s: expected input [batch, %d], got %v", l.name, l.inFeatures, shape))
	}

	tp := p.Tape
	y := tp.MatMul(x, tp.Transpose(l.weight.Value()))
	if l.bias != nil {
		y = tp.Add(y, tp.ExpandAxis(l.bias.Value(), y.Shape(), 1))
	}
	p.capture(y)
	return y
}

// Parameters returns the weight and, if present, the bias.
func (l *Linear) Parameters() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}

// Clone returns a deep copy of the layer.
func (l *Linear) Clone() Module {
	c := *l
	c.weight = l.weight.Clone()
	if l.bias != nil {
		c.bias = l.bias.Clone()
	}
	return &c
}

// Name returns the layer name.
func (l *Linear) Name() string { return l.name }

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter (nil when the layer has none).
func (l *Linear) Bias() *Parameter { return l.bias }

// Role reports RoleMain; linear layers never sit on a skip connection.
func (l *Linear) Role() Role { return RoleMain }

// InFeatures returns the input dimension.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output dimension.
func (l *Linear) OutFeatures() int { return l.outFeatures }
