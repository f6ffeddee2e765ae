package data

import (
	"errors"
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// ErrInsufficientSamples is returned when a source runs out before every
// class bucket is filled.
var ErrInsufficientSamples = errors.New("data: source exhausted before every class reached the requested sample count")

// SampleMode selects how Fetch draws examples.
type SampleMode int

// Sample modes.
const (
	// SampleBalanced buckets examples by label until each class is full.
	SampleBalanced SampleMode = iota
	// SamplePrefetched takes the leading examples of the first batch.
	SamplePrefetched
)

// String returns the mode name.
func (m SampleMode) String() string {
	switch m {
	case SampleBalanced:
		return "balanced"
	case SamplePrefetched:
		return "prefetched"
	default:
		return fmt.Sprintf("SampleMode(%d)", int(m))
	}
}

// FetchOptions configures Fetch.
type FetchOptions struct {
	Mode SampleMode
	// Grouped interleaves classes so that position i*numClasses+j holds the
	// i-th example of class j. Contiguous slices then mix labels.
	Grouped bool
}

// Fetch draws numClasses*samplesPerClass examples from src.
//
// In balanced mode the result is ordered by label (all of class 0, then
// class 1, ...) unless Grouped is set. In prefetched mode the first
// numClasses*samplesPerClass examples of the first batch are returned as is.
func Fetch(src Source, numClasses, samplesPerClass int, opts FetchOptions) (Batch, error) {
	if numClasses <= 0 || samplesPerClass <= 0 {
		return Batch{}, fmt.Errorf("data: invalid sample request %d classes x %d", numClasses, samplesPerClass)
	}
	total := numClasses * samplesPerClass

	if opts.Mode == SamplePrefetched {
		b, ok := src.Iter().Next()
		if !ok || b.Len() < total {
			return Batch{}, fmt.Errorf("prefetch %d examples: %w", total, ErrInsufficientSamples)
		}
		return b.Slice(0, total), nil
	}

	buckets := make([][]Batch, numClasses)
	filled := 0
	it := src.Iter()
	for filled < numClasses {
		b, ok := it.Next()
		if !ok {
			return Batch{}, fmt.Errorf("balanced fetch (%d of %d classes full): %w", filled, numClasses, ErrInsufficientSamples)
		}
		for i, y := range b.Labels {
			if y < 0 || y >= numClasses || len(buckets[y]) == samplesPerClass {
				continue
			}
			buckets[y] = append(buckets[y], b.Example(i))
			if len(buckets[y]) == samplesPerClass {
				filled++
			}
		}
	}

	order := make([]Batch, 0, total)
	if opts.Grouped {
		for i := range samplesPerClass {
			for j := range numClasses {
				order = append(order, buckets[j][i])
			}
		}
	} else {
		for _, bucket := range buckets {
			order = append(order, bucket...)
		}
	}
	return concat(order), nil
}

// concat stacks single-example batches along the batch dimension.
func concat(examples []Batch) Batch {
	inputs := make([]*tensor.Tensor, len(examples))
	labels := make([]int, len(examples))
	for i, e := range examples {
		inputs[i] = e.Inputs
		labels[i] = e.Labels[0]
	}
	shape := append(tensor.Shape{len(examples)}, examples[0].Inputs.Shape()[1:]...)
	return Batch{Inputs: tensor.Cat(inputs...).Reshape(shape...), Labels: labels}
}

// AdjustSamplesPerClass applies the even-split adjustment for two groups:
// 5 samples per class become 6.
func AdjustSamplesPerClass(samplesPerClass, numGroup int) int {
	if samplesPerClass == 5 && numGroup == 2 {
		return 6
	}
	return samplesPerClass
}
