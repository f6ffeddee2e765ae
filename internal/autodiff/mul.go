package autodiff

// mulOp represents output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type mulOp struct {
	inputs []*Value // [a, b]
}

// Mul performs element-wise multiplication of equally shaped values.
func (t *Tape) Mul(a, b *Value) *Value {
	return t.record(a.data.Mul(b.data), &mulOp{inputs: []*Value{a, b}})
}

func (op *mulOp) Inputs() []*Value { return op.inputs }

func (op *mulOp) Backward(t *Tape, g *Value) []*Value {
	a, b := op.inputs[0], op.inputs[1]
	return []*Value{t.Mul(g, b), t.Mul(g, a)}
}

// scaleOp represents output = c * x for a constant c.
type scaleOp struct {
	inputs []*Value
	c      float64
}

// Scale multiplies x by the constant c.
func (t *Tape) Scale(x *Value, c float64) *Value {
	return t.record(x.data.Scale(c), &scaleOp{inputs: []*Value{x}, c: c})
}

func (op *scaleOp) Inputs() []*Value { return op.inputs }

func (op *scaleOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{t.Scale(g, op.c)}
}

// Square returns x².
func (t *Tape) Square(x *Value) *Value {
	return t.Mul(x, x)
}

// Dot returns Σ a·b as a scalar.
func (t *Tape) Dot(a, b *Value) *Value {
	return t.Sum(t.Mul(a, b))
}
