package nn

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
)

// Model is the concrete Network: a root module plus the ordered list of
// prunable layers discovered by walking it.
type Model struct {
	name   string
	root   Module
	layers []Layer
}

// NewModel wraps root. Prunable layers are enumerated depth-first in
// Children order, which must coincide with the order Forward runs them.
// Layer names must be unique.
func NewModel(name string, root Module) (*Model, error) {
	m := &Model{name: name, root: root}
	seen := make(map[string]bool)
	var walk func(Module) error
	walk = func(mod Module) error {
		if l, ok := mod.(Layer); ok {
			if seen[l.Name()] {
				return fmt.Errorf("model %s: duplicate layer name %q", name, l.Name())
			}
			seen[l.Name()] = true
			m.layers = append(m.layers, l)
		}
		if c, ok := mod.(Container); ok {
			for _, child := range c.Children() {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	if len(m.layers) == 0 {
		return nil, fmt.Errorf("model %s: no prunable layers", name)
	}
	return m, nil
}

// MustModel is like NewModel but panics on error.
func MustModel(name string, root Module) *Model {
	m, err := NewModel(name, root)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Forward runs the root module.
func (m *Model) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	return m.root.Forward(p, x)
}

// Layers returns the prunable layers in traversal order.
func (m *Model) Layers() []Layer { return m.layers }

// Parameters returns every trainable parameter.
func (m *Model) Parameters() []*Parameter { return m.root.Parameters() }

// Clone returns a deep copy.
func (m *Model) Clone() Network {
	return MustModel(m.name, m.root.Clone())
}

// Weights returns the weight parameter of each prunable layer.
func Weights(n Network) []*Parameter {
	layers := n.Layers()
	ws := make([]*Parameter, len(layers))
	for i, l := range layers {
		ws[i] = l.Weight()
	}
	return ws
}

// WeightValues returns the autodiff leaves of each prunable weight.
func WeightValues(n Network) []*autodiff.Value {
	layers := n.Layers()
	vs := make([]*autodiff.Value, len(layers))
	for i, l := range layers {
		vs[i] = l.Weight().Value()
	}
	return vs
}

// NumWeights returns the total number of prunable weight entries.
func NumWeights(n Network) int {
	total := 0
	for _, l := range n.Layers() {
		total += l.Weight().Tensor().NumElements()
	}
	return total
}
