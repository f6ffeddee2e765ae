// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the networks the pruning engine operates on.
//
// A network exposes its prunable layers (Linear and Conv2D weights) in
// traversal order; that order indexes masks, scores and recorded outputs.
//
//	net, err := nn.Build(nn.Architecture{
//	    Network: "resnet", Depth: 32, InChannels: 3, InputSize: 32, Classes: 10,
//	}, rng)
package nn

import (
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Module is the base interface for all network components.
type Module = nn.Module

// Layer is a prunable module with a weight tensor.
type Layer = nn.Layer

// Network is a model with an ordered list of prunable layers.
type Network = nn.Network

// Model is the Network implementation built by this package.
type Model = nn.Model

// Parameter is a trainable tensor.
type Parameter = nn.Parameter

// Pass carries the tape and optional recorder of one forward pass.
type Pass = nn.Pass

// Recorder captures prunable layer outputs in traversal order.
type Recorder = nn.Recorder

// Role distinguishes main-path layers from residual shortcut projections.
type Role = nn.Role

// Layer roles.
const (
	RoleMain     = nn.RoleMain
	RoleShortcut = nn.RoleShortcut
)

// Architecture describes a network to build.
type Architecture = nn.Architecture

// Build constructs the described network.
func Build(a Architecture, rng *rand.Rand) (*Model, error) {
	return nn.Build(a, rng)
}

// NewMLP builds Flatten -> (Linear -> ReLU)* -> Linear.
func NewMLP(inFeatures int, hidden []int, classes int, rng *rand.Rand) (*Model, error) {
	return nn.NewMLP(inFeatures, hidden, classes, rng)
}

// NewLeNet5 builds LeNet-5.
func NewLeNet5(inChannels, inputSize, classes int, rng *rand.Rand) (*Model, error) {
	return nn.NewLeNet5(inChannels, inputSize, classes, rng)
}

// NewVGG builds a VGG-11/13/16/19 for small images.
func NewVGG(depth, inChannels, classes, width int, rng *rand.Rand) (*Model, error) {
	return nn.NewVGG(depth, inChannels, classes, width, rng)
}

// NewResNet builds a CIFAR-style ResNet of depth 6n+2.
func NewResNet(depth, inChannels, classes, width int, rng *rand.Rand) (*Model, error) {
	return nn.NewResNet(depth, inChannels, classes, width, rng)
}

// NewPass creates a forward pass on tp without a recorder.
func NewPass(tp *autodiff.Tape) *Pass {
	return nn.NewPass(tp)
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return nn.NewRecorder()
}

// CrossEntropy returns the mean softmax cross-entropy of logits.
func CrossEntropy(tp *autodiff.Tape, logits *autodiff.Value, labels []int) *autodiff.Value {
	return nn.CrossEntropy(tp, logits, labels)
}

// Accuracy returns the fraction of rows whose arg-max equals the label.
func Accuracy(logits *tensor.Tensor, labels []int) float64 {
	return nn.Accuracy(logits, labels)
}

// NumWeights returns the number of prunable weights of n.
func NumWeights(n Network) int {
	return nn.NumWeights(n)
}
