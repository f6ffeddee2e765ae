package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

func (t *Tensor) mustMatch(op string, other *Tensor) {
	if !t.shape.Equal(other.shape) {
		panic(fmt.Sprintf("tensor.%s: shape mismatch %v vs %v", op, t.shape, other.shape))
	}
}

// Add returns t + other element-wise.
func (t *Tensor) Add(other *Tensor) *Tensor {
	t.mustMatch("Add", other)
	out := t.Clone()
	floats.Add(out.data, other.data)
	return out
}

// Sub returns t - other element-wise.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	t.mustMatch("Sub", other)
	out := t.Clone()
	floats.Sub(out.data, other.data)
	return out
}

// Mul returns t * other element-wise.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	t.mustMatch("Mul", other)
	out := t.Clone()
	floats.Mul(out.data, other.data)
	return out
}

// Scale returns c * t.
func (t *Tensor) Scale(c float64) *Tensor {
	out := t.Clone()
	floats.Scale(c, out.data)
	return out
}

// AddScalar returns t + c.
func (t *Tensor) AddScalar(c float64) *Tensor {
	out := t.Clone()
	floats.AddConst(c, out.data)
	return out
}

// AddInPlace accumulates other into t.
func (t *Tensor) AddInPlace(other *Tensor) {
	t.mustMatch("AddInPlace", other)
	floats.Add(t.data, other.data)
}

// MulInPlace multiplies t by other element-wise.
func (t *Tensor) MulInPlace(other *Tensor) {
	t.mustMatch("MulInPlace", other)
	floats.Mul(t.data, other.data)
}

// ScaleInPlace multiplies every element of t by c.
func (t *Tensor) ScaleInPlace(c float64) {
	floats.Scale(c, t.data)
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}
	return out
}

// Abs returns |t|.
func (t *Tensor) Abs() *Tensor {
	return t.Apply(math.Abs)
}

// Square returns t².
func (t *Tensor) Square() *Tensor {
	return t.Apply(func(v float64) float64 { return v * v })
}

// Sqrt returns √t.
func (t *Tensor) Sqrt() *Tensor {
	return t.Apply(math.Sqrt)
}

// Sign returns -1, 0 or 1 per element.
func (t *Tensor) Sign() *Tensor {
	return t.Apply(func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	})
}

// Positive returns 1 where t > 0 and 0 elsewhere.
func (t *Tensor) Positive() *Tensor {
	return t.Apply(func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

// GreaterEqual returns 1 where t >= threshold and 0 elsewhere.
func (t *Tensor) GreaterEqual(threshold float64) *Tensor {
	return t.Apply(func(v float64) float64 {
		if v >= threshold {
			return 1
		}
		return 0
	})
}

// NonZero returns 1 where t != 0 and 0 elsewhere.
func (t *Tensor) NonZero() *Tensor {
	return t.Apply(func(v float64) float64 {
		if v != 0 {
			return 1
		}
		return 0
	})
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// Mean returns the arithmetic mean of all elements.
func (t *Tensor) Mean() float64 {
	return floats.Sum(t.data) / float64(len(t.data))
}

// Max returns the largest element.
func (t *Tensor) Max() float64 {
	return floats.Max(t.data)
}

// Min returns the smallest element.
func (t *Tensor) Min() float64 {
	return floats.Min(t.data)
}

// Dot returns Σ t·other.
func (t *Tensor) Dot(other *Tensor) float64 {
	t.mustMatch("Dot", other)
	return floats.Dot(t.data, other.data)
}

// CountEqual counts elements equal to v.
func (t *Tensor) CountEqual(v float64) int {
	n := 0
	for _, x := range t.data {
		if x == v {
			n++
		}
	}
	return n
}

// CountNonZero counts elements different from zero.
func (t *Tensor) CountNonZero() int {
	return len(t.data) - t.CountEqual(0)
}

// HasNaN reports whether any element is NaN.
func (t *Tensor) HasNaN() bool {
	return floats.HasNaN(t.data)
}

// SumToAxis sums every dimension except axis, returning a 1-D tensor of
// length shape[axis].
func (t *Tensor) SumToAxis(axis int) *Tensor {
	if axis < 0 || axis >= len(t.shape) {
		panic(fmt.Sprintf("tensor.SumToAxis: invalid axis %d for shape %v", axis, t.shape))
	}
	n := t.shape[axis]
	inner := t.shape.ComputeStrides()[axis]
	out := Zeros(Shape{n})
	for i, v := range t.data {
		out.data[(i/inner)%n] += v
	}
	return out
}

// ExpandAxis broadcasts the 1-D tensor t (length shape[axis]) to shape,
// replicating it along every other dimension. It is the adjoint of SumToAxis.
func (t *Tensor) ExpandAxis(shape Shape, axis int) *Tensor {
	if axis < 0 || axis >= len(shape) || len(t.shape) != 1 || t.shape[0] != shape[axis] {
		panic(fmt.Sprintf("tensor.ExpandAxis: cannot expand %v to %v along axis %d", t.shape, shape, axis))
	}
	n := shape[axis]
	inner := shape.ComputeStrides()[axis]
	out := Zeros(shape)
	for i := range out.data {
		out.data[i] = t.data[(i/inner)%n]
	}
	return out
}

// Gather builds a tensor of the given shape with out[i] = t[index[i]];
// negative indices produce zeros (used for padding).
func (t *Tensor) Gather(index []int, shape Shape) *Tensor {
	if shape.NumElements() != len(index) {
		panic(fmt.Sprintf("tensor.Gather: %d indices for shape %v", len(index), shape))
	}
	out := Zeros(shape)
	gatherInto(out.data, t.data, index)
	return out
}

// ScatterAdd builds a tensor of the given shape with out[index[i]] += t[i];
// negative indices are dropped. It is the adjoint of Gather.
func (t *Tensor) ScatterAdd(index []int, shape Shape) *Tensor {
	if len(t.data) != len(index) {
		panic(fmt.Sprintf("tensor.ScatterAdd: %d indices for %d values", len(index), len(t.data)))
	}
	out := Zeros(shape)
	for i, src := range index {
		if src >= 0 {
			out.data[src] += t.data[i]
		}
	}
	return out
}
