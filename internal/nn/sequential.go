package nn

import "github.com/hunkoufanchi777/SynCW/internal/autodiff"

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear("fc1", 784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear("fc2", 128, 10, rng),
//	)
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies all modules in sequence.
func (s *Sequential) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	out := x
	for _, m := range s.modules {
		out = m.Forward(p, out)
	}
	return out
}

// Parameters returns all parameters from all modules, in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Children returns the contained modules.
func (s *Sequential) Children() []Module {
	return s.modules
}

// Clone deep-copies every contained module.
func (s *Sequential) Clone() Module {
	modules := make([]Module, len(s.modules))
	for i, m := range s.modules {
		modules[i] = m.Clone()
	}
	return &Sequential{modules: modules}
}

// Len returns the number of modules.
func (s *Sequential) Len() int {
	return len(s.modules)
}
