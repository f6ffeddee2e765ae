package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(err) // Shape validation should prevent this
	}
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.NumElements())}
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// OnesLike creates a tensor of ones with the shape of t.
func OnesLike(t *Tensor) *Tensor {
	return Full(t.shape, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Scalar creates a zero-dimensional tensor holding v.
func Scalar(v float64) *Tensor {
	return &Tensor{shape: Shape{}, data: []float64{v}}
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = rng.NormFloat64()
	}
	return t
}

// Uniform creates a tensor with values drawn from U(low, high).
func Uniform(shape Shape, low, high float64, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = low + rng.Float64()*(high-low)
	}
	return t
}

// Arange creates a 1-D tensor [0, 1, ..., n-1].
func Arange(n int) *Tensor {
	t := Zeros(Shape{n})
	for i := range t.data {
		t.data[i] = float64(i)
	}
	return t
}

// OneHot encodes labels as a [len(labels), classes] matrix.
func OneHot(labels []int, classes int) *Tensor {
	t := Zeros(Shape{len(labels), classes})
	for i, y := range labels {
		t.data[i*classes+y] = 1
	}
	return t
}

// Cat concatenates the flattened contents of ts into one 1-D tensor.
func Cat(ts ...*Tensor) *Tensor {
	n := 0
	for _, t := range ts {
		n += len(t.data)
	}
	buf := make([]float64, 0, n)
	for _, t := range ts {
		buf = append(buf, t.data...)
	}
	if n == 0 {
		return &Tensor{shape: Shape{0}, data: buf}
	}
	return &Tensor{shape: Shape{n}, data: buf}
}

// XavierNormal draws N(0, 2/(fanIn+fanOut)).
func XavierNormal(shape Shape, fanIn, fanOut int, rng *rand.Rand) *Tensor {
	std := math.Sqrt(2.0 / float64(fanIn+fanOut))
	t := Randn(shape, rng)
	t.ScaleInPlace(std)
	return t
}

// XavierUniform draws U(-b, b) with b = sqrt(6/(fanIn+fanOut)).
func XavierUniform(shape Shape, fanIn, fanOut int, rng *rand.Rand) *Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return Uniform(shape, -bound, bound, rng)
}

