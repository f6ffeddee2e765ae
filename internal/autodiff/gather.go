package autodiff

import "github.com/hunkoufanchi777/SynCW/internal/tensor"

// gatherOp represents output[i] = x[index[i]] (0 where index[i] < 0).
// It expresses im2col, padding and axis permutations.
//
// Backward pass: ScatterAdd the gradient back into the input shape.
type gatherOp struct {
	inputs []*Value
	index  []int
}

// Gather selects elements of x by flat index into a value of the given shape.
// The index slice is retained and must not be modified afterwards.
func (t *Tape) Gather(x *Value, index []int, shape tensor.Shape) *Value {
	return t.record(x.data.Gather(index, shape), &gatherOp{inputs: []*Value{x}, index: index})
}

func (op *gatherOp) Inputs() []*Value { return op.inputs }

func (op *gatherOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.ScatterAdd(g, op.index, op.inputs[0].Shape())}
}

// scatterAddOp represents output[index[i]] += x[i].
//
// Backward pass: Gather the gradient with the same index.
type scatterAddOp struct {
	inputs []*Value
	index  []int
}

// ScatterAdd accumulates x into a zero value of the given shape.
func (t *Tape) ScatterAdd(x *Value, index []int, shape tensor.Shape) *Value {
	return t.record(x.data.ScatterAdd(index, shape), &scatterAddOp{inputs: []*Value{x}, index: index})
}

func (op *scatterAddOp) Inputs() []*Value { return op.inputs }

func (op *scatterAddOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Gather(g, op.index, op.inputs[0].Shape())}
}
