// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides re-differentiable reverse-mode automatic
// differentiation.
//
// Gradients requested with CreateGraph are themselves recorded, so
// Hessian-gradient products can be formed by differentiating a dot
// product of gradients:
//
//	tp := autodiff.NewTape()
//	g, _ := tp.Grad(loss, weights, autodiff.GradOptions{CreateGraph: true})
//	hg, _ := tp.Grad(tp.Dot(g[0], v), weights, autodiff.GradOptions{})
package autodiff

import (
	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Tape records operations for differentiation.
type Tape = autodiff.Tape

// Value is a node of the computation graph.
type Value = autodiff.Value

// GradOptions configures Tape.Grad.
type GradOptions = autodiff.GradOptions

// NewTape creates a recording tape.
func NewTape() *Tape {
	return autodiff.NewTape()
}

// Variable creates a leaf that requires gradients.
func Variable(t *tensor.Tensor) *Value {
	return autodiff.Variable(t)
}

// Constant creates a leaf without gradients.
func Constant(t *tensor.Tensor) *Value {
	return autodiff.Constant(t)
}
