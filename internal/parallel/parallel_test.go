package parallel

import (
	"sync/atomic"
	"testing"
)

func TestRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	n := 1000
	hits := make([]int32, n)
	Range(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestRange_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	calls := 0
	Range(100, cfg, func(start, end int) {
		calls++
		if start != 0 || end != 100 {
			t.Errorf("Expected single chunk [0,100), got [%d,%d)", start, end)
		}
	})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRange_Empty(t *testing.T) {
	Range(0, DefaultConfig(), func(_, _ int) {
		t.Error("f must not be called for n=0")
	})
}
