package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MatMul returns the matrix product of two 2-D tensors.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	if len(t.shape) != 2 || len(other.shape) != 2 || t.shape[1] != other.shape[0] {
		panic(fmt.Sprintf("tensor.MatMul: incompatible shapes %v and %v", t.shape, other.shape))
	}
	a := mat.NewDense(t.shape[0], t.shape[1], t.data)
	b := mat.NewDense(other.shape[0], other.shape[1], other.data)
	out := Zeros(Shape{t.shape[0], other.shape[1]})
	c := mat.NewDense(t.shape[0], other.shape[1], out.data)
	c.Mul(a, b)
	return out
}

// Transpose returns the transpose of a 2-D tensor.
func (t *Tensor) Transpose() *Tensor {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor.Transpose: expected 2-D tensor, got %v", t.shape))
	}
	rows, cols := t.shape[0], t.shape[1]
	out := Zeros(Shape{cols, rows})
	out.dense().Copy(t.dense().T())
	return out
}

func (t *Tensor) dense() *mat.Dense {
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}
