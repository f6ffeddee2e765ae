package pruning

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Masks holds one 0/1 tensor per prunable layer, in traversal order.
type Masks []*tensor.Tensor

// Scores holds one saliency tensor per prunable layer, in traversal order.
type Scores []*tensor.Tensor

// Ones returns all-ones masks for net (nothing pruned).
func Ones(net nn.Network) Masks {
	layers := net.Layers()
	masks := make(Masks, len(layers))
	for i, l := range layers {
		masks[i] = tensor.OnesLike(l.Weight().Tensor())
	}
	return masks
}

// Clone returns a deep copy.
func (m Masks) Clone() Masks {
	out := make(Masks, len(m))
	for i, t := range m {
		out[i] = t.Clone()
	}
	return out
}

// Validate checks that m has one binary entry per prunable layer of net
// with the shape of that layer's weight.
func (m Masks) Validate(net nn.Network) error {
	layers := net.Layers()
	if len(m) != len(layers) {
		return fmt.Errorf("%w: %d masks for %d layers", ErrShapeMismatch, len(m), len(layers))
	}
	for i, l := range layers {
		if !m[i].Shape().Equal(l.Weight().Shape()) {
			return fmt.Errorf("%w: mask %v for layer %s weight %v", ErrShapeMismatch, m[i].Shape(), l.Name(), l.Weight().Shape())
		}
		for _, v := range m[i].Data() {
			if v != 0 && v != 1 {
				return fmt.Errorf("pruning: mask of layer %s holds non-binary value %g", l.Name(), v)
			}
		}
	}
	return nil
}

// Kept returns the number of ones.
func (m Masks) Kept() int {
	kept := 0
	for _, t := range m {
		kept += t.CountEqual(1)
	}
	return kept
}

// Total returns the number of mask entries.
func (m Masks) Total() int {
	total := 0
	for _, t := range m {
		total += t.NumElements()
	}
	return total
}

// Apply multiplies the live weights of net by the masks in place.
func (m Masks) Apply(net nn.Network) error {
	layers := net.Layers()
	if len(m) != len(layers) {
		return fmt.Errorf("%w: %d masks for %d layers", ErrShapeMismatch, len(m), len(layers))
	}
	for i, l := range layers {
		w := l.Weight().Tensor()
		if !w.Shape().Equal(m[i].Shape()) {
			return fmt.Errorf("%w: layer %s", ErrShapeMismatch, l.Name())
		}
		w.MulInPlace(m[i])
	}
	return nil
}

// Snapshot is an immutable copy of a network's prunable weights.
type Snapshot struct {
	weights []*tensor.Tensor
}

// TakeSnapshot deep-copies the prunable weights of net.
func TakeSnapshot(net nn.Network) *Snapshot {
	layers := net.Layers()
	s := &Snapshot{weights: make([]*tensor.Tensor, len(layers))}
	for i, l := range layers {
		s.weights[i] = l.Weight().Tensor().Clone()
	}
	return s
}

// Len returns the number of layers in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.weights)
}

// Weight returns a copy of the snapshot weight of layer i.
func (s *Snapshot) Weight(i int) *tensor.Tensor {
	return s.weights[i].Clone()
}

// Weights returns copies of every snapshot weight.
func (s *Snapshot) Weights() []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(s.weights))
	for i, w := range s.weights {
		out[i] = w.Clone()
	}
	return out
}

// Masked returns snapshot ⊙ masks as new tensors. A nil masks value
// returns plain copies.
func (s *Snapshot) Masked(masks Masks) ([]*tensor.Tensor, error) {
	if masks == nil {
		return s.Weights(), nil
	}
	if len(masks) != len(s.weights) {
		return nil, fmt.Errorf("%w: %d masks for %d snapshot weights", ErrShapeMismatch, len(masks), len(s.weights))
	}
	out := make([]*tensor.Tensor, len(s.weights))
	for i, w := range s.weights {
		if !w.Shape().Equal(masks[i].Shape()) {
			return nil, fmt.Errorf("%w: mask %d has shape %v, weight %v", ErrShapeMismatch, i, masks[i].Shape(), w.Shape())
		}
		out[i] = w.Mul(masks[i])
	}
	return out, nil
}

// Restore writes snapshot ⊙ masks into the prunable weights of net.
func (s *Snapshot) Restore(net nn.Network, masks Masks) error {
	weights, err := s.Masked(masks)
	if err != nil {
		return err
	}
	return setWeights(net, weights)
}

func setWeights(net nn.Network, weights []*tensor.Tensor) error {
	layers := net.Layers()
	if len(weights) != len(layers) {
		return fmt.Errorf("%w: %d weights for %d layers", ErrShapeMismatch, len(weights), len(layers))
	}
	for i, l := range layers {
		if err := l.Weight().Set(weights[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
		}
	}
	return nil
}

// liveWeights returns copies of the current prunable weights of net.
func liveWeights(net nn.Network) []*tensor.Tensor {
	layers := net.Layers()
	out := make([]*tensor.Tensor, len(layers))
	for i, l := range layers {
		out[i] = l.Weight().Tensor().Clone()
	}
	return out
}
