package autodiff

import "github.com/hunkoufanchi777/SynCW/internal/tensor"

// sumOp reduces all elements to a scalar.
//
// Backward pass: broadcast the scalar gradient to the input shape.
type sumOp struct {
	inputs []*Value
}

// Sum returns the sum of all elements as a zero-dimensional value.
func (t *Tape) Sum(x *Value) *Value {
	return t.record(tensor.Scalar(x.data.Sum()), &sumOp{inputs: []*Value{x}})
}

func (op *sumOp) Inputs() []*Value { return op.inputs }

func (op *sumOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Broadcast(g, op.inputs[0].Shape())}
}

// broadcastOp replicates a one-element value to a shape.
//
// Backward pass: sum the gradient back to one element.
type broadcastOp struct {
	inputs []*Value
	shape  tensor.Shape // input shape
}

// Broadcast replicates the single element of s to shape.
func (t *Tape) Broadcast(s *Value, shape tensor.Shape) *Value {
	out := tensor.Full(shape, s.Item())
	return t.record(out, &broadcastOp{inputs: []*Value{s}, shape: s.Shape().Clone()})
}

func (op *broadcastOp) Inputs() []*Value { return op.inputs }

func (op *broadcastOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Reshape(t.Sum(g), op.shape...)}
}

// sumToAxisOp sums every dimension except one.
//
// Backward pass: ExpandAxis the gradient back to the input shape.
type sumToAxisOp struct {
	inputs []*Value
	axis   int
}

// SumToAxis sums every dimension of x except axis, yielding a 1-D value.
// For a [batch, classes] matrix, SumToAxis(x, 0) is the per-row sum.
func (t *Tape) SumToAxis(x *Value, axis int) *Value {
	return t.record(x.data.SumToAxis(axis), &sumToAxisOp{inputs: []*Value{x}, axis: axis})
}

func (op *sumToAxisOp) Inputs() []*Value { return op.inputs }

func (op *sumToAxisOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.ExpandAxis(g, op.inputs[0].Shape(), op.axis)}
}

// expandAxisOp broadcasts a 1-D value along every dimension but one.
//
// Backward pass: SumToAxis the gradient.
type expandAxisOp struct {
	inputs []*Value
	axis   int
}

// ExpandAxis broadcasts the 1-D value v to shape, v running along axis.
// Used for biases: a [out] bias expands to [batch, out] with axis 1.
func (t *Tape) ExpandAxis(v *Value, shape tensor.Shape, axis int) *Value {
	return t.record(v.data.ExpandAxis(shape, axis), &expandAxisOp{inputs: []*Value{v}, axis: axis})
}

func (op *expandAxisOp) Inputs() []*Value { return op.inputs }

func (op *expandAxisOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.SumToAxis(g, op.axis)}
}
