package autodiff

import "github.com/hunkoufanchi777/SynCW/internal/tensor"

// reshapeOp represents a change of shape that keeps element order.
//
// Backward pass: reshape the gradient back to the input shape.
type reshapeOp struct {
	inputs []*Value
	shape  tensor.Shape // input shape
}

// Reshape reshapes x; one dimension may be -1.
// The result owns a copy of the data so later in-place writes to x's
// tensor cannot leak into recorded graphs.
func (t *Tape) Reshape(x *Value, shape ...int) *Value {
	out := x.data.Clone().Reshape(shape...)
	return t.record(out, &reshapeOp{inputs: []*Value{x}, shape: x.Shape().Clone()})
}

func (op *reshapeOp) Inputs() []*Value { return op.inputs }

func (op *reshapeOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Reshape(g, op.shape...)}
}
