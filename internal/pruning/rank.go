package pruning

import (
	"fmt"
	"math"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// rankEpsilon is added to the pool normaliser.
const rankEpsilon = 1e-10

// RankOptions configures Rank.
type RankOptions struct {
	// Normalize divides the pool by |Σ pool| + 1e-10.
	Normalize bool

	// EffectiveOnly keeps exactly the nonzero scores instead of the top-k.
	EffectiveOnly bool

	// Exclude, when set, forces the scores of positions it zeroes to the
	// pool minimum and never selects them again.
	Exclude Masks
}

// Rank turns per-layer scores into global top-k masks.
//
// All scores are pooled, k = ⌊|pool|·keepRatio⌋ and the threshold is the
// k-th largest (normalised) score. Every score >= threshold is kept, so
// ties at the cut-off can keep more than k entries. k = 0 yields all-zero
// masks and an infinite threshold. The input scores are not modified.
func Rank(scores Scores, keepRatio float64, opts RankOptions) (Masks, float64, error) {
	var pool []float64
	for _, s := range scores {
		pool = append(pool, s.Data()...)
	}
	if len(pool) == 0 {
		return nil, 0, ErrEmptyPool
	}
	if floats.HasNaN(pool) {
		return nil, 0, fmt.Errorf("%w: NaN in score pool", ErrInvalidScores)
	}

	if opts.Exclude != nil {
		if len(opts.Exclude) != len(scores) {
			return nil, 0, fmt.Errorf("%w: %d exclusion masks for %d scores", ErrShapeMismatch, len(opts.Exclude), len(scores))
		}
		lowest := floats.Min(pool)
		offset := 0
		for i, s := range scores {
			ex := opts.Exclude[i]
			if !ex.Shape().Equal(s.Shape()) {
				return nil, 0, fmt.Errorf("%w: exclusion mask %d", ErrShapeMismatch, i)
			}
			for j, v := range ex.Data() {
				if v == 0 {
					pool[offset+j] = lowest
				}
			}
			offset += s.NumElements()
		}
	}

	norm := 1.0
	if opts.Normalize {
		norm = math.Abs(floats.Sum(pool)) + rankEpsilon
	}
	floats.Scale(1/norm, pool)

	k := int(float64(len(pool)) * keepRatio)
	threshold := math.Inf(1)
	if k > 0 {
		sorted := make([]float64, len(pool))
		copy(sorted, pool)
		floats.Argsort(sorted, make([]int, len(sorted)))
		threshold = sorted[len(sorted)-min(k, len(sorted))]
	}

	masks := make(Masks, len(scores))
	offset := 0
	for i, s := range scores {
		n := s.NumElements()
		m := make([]float64, n)
		for j, v := range pool[offset : offset+n] {
			keep := v >= threshold
			if opts.EffectiveOnly {
				keep = v != 0
			}
			if opts.Exclude != nil && opts.Exclude[i].Data()[j] == 0 {
				keep = false
			}
			if keep {
				m[j] = 1
			}
		}
		masks[i] = tensor.New(s.Shape().Clone(), m)
		offset += n
	}
	return masks, threshold, nil
}

// KeepRatioSchedule returns the keep ratios (1-r)^(k/n) for k = 1..n.
// The last entry is 1-r.
func KeepRatioSchedule(targetRatio float64, rounds int) []float64 {
	schedule := make([]float64, rounds)
	for k := 1; k <= rounds; k++ {
		schedule[k-1] = math.Pow(1-targetRatio, float64(k)/float64(rounds))
	}
	if rounds > 0 {
		schedule[rounds-1] = 1 - targetRatio
	}
	return schedule
}
