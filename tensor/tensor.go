// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float64 tensors
// that hold weights, masks and scores.
package tensor

import (
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Tensor is a dense row-major float64 tensor.
type Tensor = tensor.Tensor

// Shape lists the dimensions of a tensor.
type Shape = tensor.Shape

// New wraps data (not copied) in a tensor of the given shape.
func New(shape Shape, data []float64) *Tensor {
	return tensor.New(shape, data)
}

// FromSlice copies data into a tensor of the given shape.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Randn creates a tensor with standard normal values drawn from rng.
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	return tensor.Randn(shape, rng)
}
