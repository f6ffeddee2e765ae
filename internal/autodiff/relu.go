package autodiff

// reluOp represents output = max(0, x).
//
// Backward pass: grad_x = outputGrad * 1[x > 0]. The indicator is a
// constant, so the second derivative is zero almost everywhere.
type reluOp struct {
	inputs []*Value
}

// ReLU applies the rectified linear unit.
func (t *Tape) ReLU(x *Value) *Value {
	out := x.data.Apply(func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
	return t.record(out, &reluOp{inputs: []*Value{x}})
}

func (op *reluOp) Inputs() []*Value { return op.inputs }

func (op *reluOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Mul(g, Constant(op.inputs[0].data.Positive()))}
}
