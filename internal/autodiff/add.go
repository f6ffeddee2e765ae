package autodiff

// addOp represents output = a + b.
//
// Backward pass: the gradient flows unchanged to both inputs.
type addOp struct {
	inputs []*Value // [a, b]
}

// Add performs element-wise addition of equally shaped values.
func (t *Tape) Add(a, b *Value) *Value {
	return t.record(a.data.Add(b.data), &addOp{inputs: []*Value{a, b}})
}

func (op *addOp) Inputs() []*Value { return op.inputs }

func (op *addOp) Backward(_ *Tape, g *Value) []*Value {
	return []*Value{g, g}
}

// subOp represents output = a - b.
type subOp struct {
	inputs []*Value // [a, b]
}

// Sub performs element-wise subtraction of equally shaped values.
func (t *Tape) Sub(a, b *Value) *Value {
	return t.record(a.data.Sub(b.data), &subOp{inputs: []*Value{a, b}})
}

func (op *subOp) Inputs() []*Value { return op.inputs }

func (op *subOp) Backward(t *Tape, g *Value) []*Value {
	return []*Value{g, t.Scale(g, -1)}
}
