// Package parallel splits index ranges across goroutines for element kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config bounds the fan-out of Range.
type Config struct {
	Enabled      bool
	NumWorkers   int
	MinChunkSize int // smallest chunk handed to one goroutine
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{Enabled: cpus > 1, NumWorkers: cpus, MinChunkSize: 4096}
}

// Range executes f(start, end) over disjoint chunks covering [0, n).
// Falls back to a single call when parallelism is disabled or n is too small.
// f must only write to indices inside its own chunk.
func Range(n int, cfg Config, f func(start, end int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}
