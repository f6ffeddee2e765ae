package data

import (
	"fmt"
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Batch is a set of examples with aligned integer labels.
// Inputs has shape [N, ...]; len(Labels) == N.
type Batch struct {
	Inputs *tensor.Tensor
	Labels []int
}

// Len returns the number of examples.
func (b Batch) Len() int {
	return len(b.Labels)
}

// Slice returns examples [start, end) as an independent batch.
func (b Batch) Slice(start, end int) Batch {
	labels := make([]int, end-start)
	copy(labels, b.Labels[start:end])
	return Batch{Inputs: b.Inputs.Slice(start, end), Labels: labels}
}

// Example returns example i as a [1, ...] batch.
func (b Batch) Example(i int) Batch {
	return b.Slice(i, i+1)
}

// Source yields batches of labelled examples.
// Each call to Iter starts a fresh pass over the data.
type Source interface {
	Iter() Iterator
}

// Iterator walks one pass of a Source.
type Iterator interface {
	// Next returns the next batch, or false once the pass is exhausted.
	Next() (Batch, bool)
}

// TensorSource is an in-memory Source over a dataset tensor.
type TensorSource struct {
	inputs    *tensor.Tensor
	labels    []int
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewTensorSource creates a source over inputs [N, ...] and labels.
// When shuffle is true every pass draws a new permutation from rng.
func NewTensorSource(inputs *tensor.Tensor, labels []int, batchSize int, shuffle bool, rng *rand.Rand) (*TensorSource, error) {
	if len(inputs.Shape()) == 0 || inputs.Shape()[0] != len(labels) {
		return nil, fmt.Errorf("data: %d labels for inputs of shape %v", len(labels), inputs.Shape())
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("data: batch size must be positive, got %d", batchSize)
	}
	if shuffle && rng == nil {
		return nil, fmt.Errorf("data: shuffling requires a random source")
	}
	return &TensorSource{
		inputs:    inputs,
		labels:    labels,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
	}, nil
}

// Len returns the number of examples.
func (s *TensorSource) Len() int {
	return len(s.labels)
}

// SampleShape returns the shape of a single example.
func (s *TensorSource) SampleShape() tensor.Shape {
	return s.inputs.Shape()[1:].Clone()
}

// All returns the whole dataset as one batch (no copy of the inputs).
func (s *TensorSource) All() Batch {
	return Batch{Inputs: s.inputs, Labels: s.labels}
}

// Iter starts a new pass.
func (s *TensorSource) Iter() Iterator {
	order := make([]int, len(s.labels))
	for i := range order {
		order[i] = i
	}
	if s.shuffle {
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return &tensorIterator{src: s, order: order}
}

type tensorIterator struct {
	src   *TensorSource
	order []int
	pos   int
}

func (it *tensorIterator) Next() (Batch, bool) {
	if it.pos >= len(it.order) {
		return Batch{}, false
	}
	end := min(it.pos+it.src.batchSize, len(it.order))
	idx := it.order[it.pos:end]
	it.pos = end

	sampleShape := it.src.SampleShape()
	size := sampleShape.NumElements()
	src := it.src.inputs.Data()
	buf := make([]float64, 0, len(idx)*size)
	labels := make([]int, len(idx))
	for i, k := range idx {
		buf = append(buf, src[k*size:(k+1)*size]...)
		labels[i] = it.src.labels[k]
	}
	shape := append(tensor.Shape{len(idx)}, sampleShape...)
	return Batch{Inputs: tensor.New(shape, buf), Labels: labels}, true
}
