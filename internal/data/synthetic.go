package data

import (
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Synthetic generates a Gaussian-cluster classification dataset: each class
// has a random centre and examples are centre + noise·N(0, 1). Examples are
// emitted round-robin over classes, so any prefix is roughly balanced.
func Synthetic(classes, perClass int, sampleShape tensor.Shape, noise float64, rng *rand.Rand) (*tensor.Tensor, []int) {
	size := sampleShape.NumElements()
	centres := make([][]float64, classes)
	for c := range centres {
		centres[c] = tensor.Randn(tensor.Shape{size}, rng).Data()
	}

	n := classes * perClass
	buf := make([]float64, 0, n*size)
	labels := make([]int, 0, n)
	for range perClass {
		for c := range classes {
			for _, v := range centres[c] {
				buf = append(buf, v+noise*rng.NormFloat64())
			}
			labels = append(labels, c)
		}
	}
	shape := append(tensor.Shape{n}, sampleShape...)
	return tensor.New(shape, buf), labels
}
