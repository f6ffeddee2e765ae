// Package optim implements the optimizers and learning-rate schedules used
// to train a pruned network.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum and weight decay
//   - Adam: Adaptive Moment Estimation with L2 weight decay
//   - Masked: wrapper that keeps pruned weights at zero
//   - Scheduler: cosine, step and preset learning-rate schedules
//
// Example usage:
//
//	opt := optim.NewMasked(optim.NewSGD(net.Parameters(), optim.SGDConfig{
//	    LR:       0.1,
//	    Momentum: 0.9,
//	}), net, masks)
//
//	for step := range steps {
//	    tp := autodiff.NewTape()
//	    loss := nn.CrossEntropy(tp, net.Forward(nn.NewPass(tp), x), labels)
//	    grads, err := optim.ComputeGradients(tp, loss, net.Parameters())
//	    ...
//	    opt.Step(grads)
//	}
package optim

import (
	"fmt"
	"strings"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Gradients maps a parameter to the gradient of the loss with respect to it.
type Gradients map[*nn.Parameter]*tensor.Tensor

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters in place.
	// Parameters missing from grads are left untouched.
	Step(grads Gradients)

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR updates the learning rate. Used by schedulers.
	SetLR(lr float64)
}

// ComputeGradients differentiates loss with respect to every parameter.
// Parameters that do not influence the loss are omitted from the result.
func ComputeGradients(tp *autodiff.Tape, loss *autodiff.Value, params []*nn.Parameter) (Gradients, error) {
	inputs := make([]*autodiff.Value, len(params))
	for i, p := range params {
		inputs[i] = p.Value()
	}
	grads, err := tp.Grad(loss, inputs, autodiff.GradOptions{AllowUnused: true})
	if err != nil {
		return nil, fmt.Errorf("optim: %w", err)
	}
	out := make(Gradients, len(params))
	for i, g := range grads {
		if g == nil {
			continue
		}
		out[params[i]] = g.Data()
	}
	return out, nil
}

// getGradient safely retrieves gradient for a parameter.
func getGradient(param *nn.Parameter, grads Gradients) *tensor.Tensor {
	if param == nil {
		return nil
	}
	return grads[param]
}

// decayed returns grad + wd*param, or grad itself when wd is zero.
func decayed(param *nn.Parameter, grad *tensor.Tensor, wd float64) *tensor.Tensor {
	if wd == 0 {
		return grad
	}
	return grad.Add(param.Tensor().Scale(wd))
}

// New builds the optimizer named by mode: "SGD" or "Adam" (case-insensitive).
func New(mode string, params []*nn.Parameter, lr, momentum, weightDecay float64) (Optimizer, error) {
	switch strings.ToLower(mode) {
	case "sgd":
		return NewSGD(params, SGDConfig{LR: lr, Momentum: momentum, WeightDecay: weightDecay}), nil
	case "adam":
		return NewAdam(params, AdamConfig{LR: lr, WeightDecay: weightDecay}), nil
	default:
		return nil, fmt.Errorf("optim: unknown optimizer %q", mode)
	}
}
