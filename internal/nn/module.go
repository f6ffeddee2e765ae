// Package nn implements the network contract consumed by the pruning engine.
//
// This package provides:
//   - Module: forward computation plus trainable parameters
//   - Layer: a prunable weight-bearing module (Linear, Conv2D)
//   - Network: an ordered, cloneable collection of prunable layers
//   - Recorder: an explicit buffer capturing prunable-layer outputs
//   - Builders for the MLP, LeNet-5, VGG and CIFAR ResNet families
//
// Forward passes run on an autodiff.Tape carried by a Pass, so any output can
// be differentiated (repeatedly) with respect to layer weights.
package nn

import "github.com/hunkoufanchi777/SynCW/internal/autodiff"

// Pass carries the per-forward-pass state.
type Pass struct {
	Tape     *autodiff.Tape
	Recorder *Recorder // optional; receives every prunable layer output
}

// NewPass creates a pass on tp without a recorder.
func NewPass(tp *autodiff.Tape) *Pass {
	return &Pass{Tape: tp}
}

// capture forwards v to the recorder when one is attached.
func (p *Pass) capture(v *autodiff.Value) {
	if p.Recorder != nil {
		p.Recorder.Record(v)
	}
}

// Module is the base interface for all neural network components.
type Module interface {
	// Forward computes the output of the module given an input value.
	Forward(p *Pass, x *autodiff.Value) *autodiff.Value

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules.
	Parameters() []*Parameter

	// Clone returns a deep copy with independent parameters.
	Clone() Module
}

// Container is implemented by modules that hold sub-modules.
// Children must be returned in the order Forward invokes them.
type Container interface {
	Children() []Module
}

// Role tells how a prunable layer sits in the network topology.
type Role int

// Layer roles.
const (
	// RoleMain marks a layer on the main computation path.
	RoleMain Role = iota
	// RoleShortcut marks a projection on a residual skip connection; it does
	// not consume the output of the layer enumerated right before it.
	RoleShortcut
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleShortcut {
		return "shortcut"
	}
	return "main"
}

// Layer is a prunable, weight-bearing module.
type Layer interface {
	Module
	Name() string
	Weight() *Parameter
	Role() Role
}

// Network is the contract the pruning engine relies on.
type Network interface {
	// Forward computes logits for a batch.
	Forward(p *Pass, x *autodiff.Value) *autodiff.Value

	// Layers returns the prunable layers in a fixed traversal order that
	// matches the order in which Forward records their outputs.
	Layers() []Layer

	// Parameters returns every trainable parameter (weights and biases).
	Parameters() []*Parameter

	// Clone returns a deep copy sharing no tensors with the receiver.
	Clone() Network
}
