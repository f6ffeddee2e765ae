// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers and learning-rate schedules for
// training a pruned network with fixed masks.
//
//	opt, err := optim.NewMasked(optim.NewSGD(net.Parameters(), optim.SGDConfig{
//	    LR: 0.1, Momentum: 0.9, WeightDecay: 5e-4,
//	}), net, masks)
package optim

import (
	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/optim"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Gradients maps parameters to their gradients.
type Gradients = optim.Gradients

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// Masked keeps pruned weights at zero across steps.
type Masked = optim.Masked

// NewMasked wraps inner so the weights of net stay masked.
func NewMasked(inner Optimizer, net nn.Network, masks []*tensor.Tensor) (*Masked, error) {
	return optim.NewMasked(inner, net, masks)
}

// ComputeGradients differentiates loss with respect to params.
func ComputeGradients(tp *autodiff.Tape, loss *autodiff.Value, params []*nn.Parameter) (Gradients, error) {
	return optim.ComputeGradients(tp, loss, params)
}

// Scheduler returns the learning rate of an epoch.
type Scheduler = optim.Scheduler

// NewScheduler builds a "cosine", "step" or "preset" schedule.
func NewScheduler(mode string, base float64, epochs, stepSize int) (Scheduler, error) {
	return optim.NewScheduler(mode, base, epochs, stepSize)
}
