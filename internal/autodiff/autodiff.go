// Package autodiff implements reverse-mode automatic differentiation whose
// backward pass is itself differentiable.
//
// Architecture:
//   - Value: a tensor plus the Operation that produced it (nil for leaves)
//   - Tape: owns the recording switch; every op is a Tape method
//   - Operation: each op builds its input gradients out of other Tape ops
//   - Grad: walks the graph in reverse topological order from a scalar
//
// Because backward passes are expressed with the same recorded ops, calling
// Grad with CreateGraph returns Values that can be differentiated again
// (Hessian-vector products, gradient-norm gradients, ...).
//
// Usage:
//
//	tp := autodiff.NewTape()
//	x := autodiff.Variable(tensor.Full(tensor.Shape{1}, 3))
//	y := tp.Mul(tp.Mul(x, x), x)                 // y = x³
//	g, _ := tp.Grad(tp.Sum(y), []*autodiff.Value{x}, autodiff.GradOptions{CreateGraph: true})
//	h, _ := tp.Grad(tp.Sum(g[0]), []*autodiff.Value{x}, autodiff.GradOptions{})
//	// g[0] = 3x² = 27, h[0] = 6x = 18
package autodiff

import (
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Value is a node of the computation graph.
type Value struct {
	data         *tensor.Tensor
	op           Operation // producing op; nil for leaves and constants
	requiresGrad bool
}

// Variable creates a leaf that gradients can be taken with respect to.
func Variable(t *tensor.Tensor) *Value {
	return &Value{data: t, requiresGrad: true}
}

// Constant creates a leaf that never receives gradients.
func Constant(t *tensor.Tensor) *Value {
	return &Value{data: t}
}

// Data returns the tensor held by v.
func (v *Value) Data() *tensor.Tensor {
	return v.data
}

// Shape returns the shape of the held tensor.
func (v *Value) Shape() tensor.Shape {
	return v.data.Shape()
}

// Item returns the value of a one-element Value.
func (v *Value) Item() float64 {
	return v.data.Item()
}

// RequiresGrad reports whether gradients flow into v.
func (v *Value) RequiresGrad() bool {
	return v.requiresGrad
}

// IsLeaf reports whether v was created directly rather than by an op.
func (v *Value) IsLeaf() bool {
	return v.op == nil
}

// Detach returns a constant sharing v's data.
func (v *Value) Detach() *Value {
	return Constant(v.data)
}

// Tape controls whether ops record their inputs.
//
// A Tape is not safe for concurrent use: one forward/backward sequence at a time.
type Tape struct {
	recording bool
}

// NewTape creates a tape that is recording.
func NewTape() *Tape {
	return &Tape{recording: true}
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *Tape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *Tape) IsRecording() bool {
	return t.recording
}

// NoGrad runs fn with recording disabled.
func (t *Tape) NoGrad(fn func()) {
	was := t.recording
	t.recording = false
	defer func() { t.recording = was }()
	fn()
}

// record wraps a forward result. The op is only attached when recording and
// at least one input requires gradients.
func (t *Tape) record(out *tensor.Tensor, op Operation) *Value {
	v := &Value{data: out}
	if !t.recording {
		return v
	}
	for _, in := range op.Inputs() {
		if in.requiresGrad {
			v.op = op
			v.requiresGrad = true
			break
		}
	}
	return v
}
