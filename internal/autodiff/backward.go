package autodiff

import (
	"errors"
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Errors returned by Grad.
var (
	ErrNotScalar   = errors.New("autodiff: output must have exactly one element")
	ErrUnusedInput = errors.New("autodiff: input is not reachable from output")
)

// GradOptions configures a call to Grad.
type GradOptions struct {
	// CreateGraph records the backward pass so the returned gradients can
	// be differentiated again.
	CreateGraph bool

	// AllowUnused returns a nil gradient for inputs that do not influence
	// the output instead of failing.
	AllowUnused bool
}

// Grad returns d(output)/d(input) for every input.
//
// Algorithm:
//  1. Seed the output with ones
//  2. Visit nodes in reverse topological order
//  3. For each op, compute input gradients using the chain rule
//  4. Accumulate gradients when a Value is used multiple times
//
// The graph is never consumed, so Grad may be called repeatedly on the
// same output or on outputs sharing sub-graphs.
func (t *Tape) Grad(output *Value, inputs []*Value, opts GradOptions) ([]*Value, error) {
	if output.data.NumElements() != 1 {
		return nil, fmt.Errorf("%w: got shape %v", ErrNotScalar, output.Shape())
	}

	grads := make(map[*Value]*Value)
	if output.requiresGrad {
		grads[output] = Constant(tensor.OnesLike(output.data))

		// Backward ops are recorded only when a higher-order graph is requested.
		was := t.recording
		t.recording = opts.CreateGraph
		defer func() { t.recording = was }()

		order := topoSort(output)
		for i := len(order) - 1; i >= 0; i-- {
			node := order[i]
			g, ok := grads[node]
			if !ok || node.op == nil {
				continue
			}
			t.accumulate(node.op, node.op.Backward(t, g), grads)
		}
	}

	result := make([]*Value, len(inputs))
	for i, in := range inputs {
		g, ok := grads[in]
		if !ok {
			if !opts.AllowUnused {
				return nil, fmt.Errorf("%w: input %d", ErrUnusedInput, i)
			}
			continue
		}
		if !opts.CreateGraph {
			g = g.Detach()
		}
		result[i] = g
	}
	return result, nil
}

// accumulate adds input gradients into the gradient table.
func (t *Tape) accumulate(op Operation, inputGrads []*Value, grads map[*Value]*Value) {
	for j, in := range op.Inputs() {
		if j >= len(inputGrads) || inputGrads[j] == nil || !in.requiresGrad {
			continue
		}
		if existing, ok := grads[in]; ok {
			grads[in] = t.Add(existing, inputGrads[j])
		} else {
			grads[in] = inputGrads[j]
		}
	}
}

// topoSort returns every gradient-carrying node reachable from root, inputs
// before the nodes that consume them.
func topoSort(root *Value) []*Value {
	type frame struct {
		v    *Value
		next int
	}
	var order []*Value
	visited := map[*Value]bool{root: true}
	stack := []frame{{v: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		var inputs []*Value
		if top.v.op != nil {
			inputs = top.v.op.Inputs()
		}
		if top.next < len(inputs) {
			in := inputs[top.next]
			top.next++
			if in.requiresGrad && !visited[in] {
				visited[in] = true
				stack = append(stack, frame{v: in})
			}
			continue
		}
		order = append(order, top.v)
		stack = stack[:len(stack)-1]
	}
	return order
}
