package autodiff

import "math"

// expOp represents output = exp(x).
//
// Backward pass: grad_x = outputGrad * exp(x), reusing the output node.
type expOp struct {
	inputs []*Value
	output *Value
}

// Exp computes the element-wise exponential.
func (t *Tape) Exp(x *Value) *Value {
	op := &expOp{inputs: []*Value{x}}
	op.output = t.record(x.data.Apply(math.Exp), op)
	return op.output
}

func (op *expOp) Inputs() []*Value { return op.inputs }

func (op *expOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Mul(g, op.output)}
}

// logOp represents output = log(x).
//
// Backward pass: grad_x = outputGrad / x.
type logOp struct {
	inputs []*Value
}

// Log computes the element-wise natural logarithm. Inputs must be positive.
func (t *Tape) Log(x *Value) *Value {
	return t.record(x.data.Apply(math.Log), &logOp{inputs: []*Value{x}})
}

func (op *logOp) Inputs() []*Value { return op.inputs }

func (op *logOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Mul(g, t.Reciprocal(op.inputs[0]))}
}

// reciprocalOp represents output = 1/x.
//
// Backward pass: grad_x = -outputGrad / x² = -outputGrad * output².
type reciprocalOp struct {
	inputs []*Value
	output *Value
}

// Reciprocal computes 1/x element-wise.
func (t *Tape) Reciprocal(x *Value) *Value {
	op := &reciprocalOp{inputs: []*Value{x}}
	op.output = t.record(x.data.Apply(func(v float64) float64 { return 1 / v }), op)
	return op.output
}

func (op *reciprocalOp) Inputs() []*Value { return op.inputs }

func (op *reciprocalOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Scale(t.Mul(g, t.Square(op.output)), -1)}
}
