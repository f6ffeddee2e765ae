package optim

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Masked wraps an optimizer so that pruned weights receive no gradient and
// stay at zero after every step.
type Masked struct {
	inner Optimizer
	masks map[*nn.Parameter]*tensor.Tensor
}

// NewMasked pairs masks with the prunable weights of net, in layer order.
// The weights are masked immediately.
func NewMasked(inner Optimizer, net nn.Network, masks []*tensor.Tensor) (*Masked, error) {
	weights := nn.Weights(net)
	if len(masks) != len(weights) {
		return nil, fmt.Errorf("optim: %d masks for %d prunable layers", len(masks), len(weights))
	}
	byParam := make(map[*nn.Parameter]*tensor.Tensor, len(weights))
	for i, w := range weights {
		if !masks[i].Shape().Equal(w.Shape()) {
			return nil, fmt.Errorf("optim: mask %v does not match weight %s %v", masks[i].Shape(), w.Name(), w.Shape())
		}
		byParam[w] = masks[i]
		w.Tensor().MulInPlace(masks[i])
	}
	return &Masked{inner: inner, masks: byParam}, nil
}

// Step masks the weight gradients, steps the inner optimizer and masks the
// weights again.
func (m *Masked) Step(grads Gradients) {
	masked := make(Gradients, len(grads))
	for p, g := range grads {
		if mask, ok := m.masks[p]; ok {
			g = g.Mul(mask)
		}
		masked[p] = g
	}
	m.inner.Step(masked)
	for p, mask := range m.masks {
		p.Tensor().MulInPlace(mask)
	}
}

// GetLR returns the learning rate of the inner optimizer.
func (m *Masked) GetLR() float64 {
	return m.inner.GetLR()
}

// SetLR sets the learning rate of the inner optimizer.
func (m *Masked) SetLR(lr float64) {
	m.inner.SetLR(lr)
}
