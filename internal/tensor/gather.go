package tensor

import "github.com/hunkoufanchi777/SynCW/internal/parallel"

var kernelConfig = parallel.DefaultConfig()

// gatherInto writes dst[i] = src[index[i]] (0 for negative indices).
// Each output slot is written by exactly one worker.
func gatherInto(dst, src []float64, index []int) {
	parallel.Range(len(dst), kernelConfig, func(start, end int) {
		for i := start; i < end; i++ {
			if j := index[i]; j >= 0 {
				dst[i] = src[j]
			}
		}
	})
}
