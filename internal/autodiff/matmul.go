package autodiff

// matMulOp represents output = A @ B for 2-D values.
//
// Backward pass:
//   - grad_A = outputGrad @ B^T
//   - grad_B = A^T @ outputGrad
type matMulOp struct {
	inputs []*Value // [A, B]
}

// MatMul performs matrix multiplication.
func (t *Tape) MatMul(a, b *Value) *Value {
	return t.record(a.data.MatMul(b.data), &matMulOp{inputs: []*Value{a, b}})
}

func (op *matMulOp) Inputs() []*Value { return op.inputs }

func (op *matMulOp) Backward(t *Tape, g *Value) []*Value {
	a, b := op.inputs[0], op.inputs[1]
	return []*Value{
		t.MatMul(g, t.Transpose(b)),
		t.MatMul(t.Transpose(a), g),
	}
}

// transposeOp represents output = X^T for a 2-D value.
type transposeOp struct {
	inputs []*Value
}

// Transpose transposes a 2-D value.
func (t *Tape) Transpose(x *Value) *Value {
	return t.record(x.data.Transpose(), &transposeOp{inputs: []*Value{x}})
}

func (op *transposeOp) Inputs() []*Value { return op.inputs }

func (op *transposeOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Transpose(g)}
}
