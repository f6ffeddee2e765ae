// Package tensor provides the dense float64 tensors used by the pruning engine.
//
// A Tensor owns a flat row-major []float64 and a Shape. Element-wise kernels and
// reductions delegate to gonum's floats package; matrix products go through
// gonum's mat.Dense. Tensors are plain values: nothing in this package tracks
// gradients (see internal/autodiff for that).
//
// Example:
//
//	w := tensor.Randn(tensor.Shape{16, 8}, rng)
//	mask := tensor.Ones(w.Shape())
//	masked := w.Mul(mask)
package tensor
