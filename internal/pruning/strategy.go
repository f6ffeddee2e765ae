package pruning

import (
	"fmt"
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Result is the outcome of a pruning strategy.
type Result struct {
	Masks     Masks
	Scores    Scores  // scores of the final round; nil for Dense
	Threshold float64 // acceptance threshold of the final round

	// Connectivity is the ConnectedScores (mode 1) of the final masks.
	Connectivity int

	// Rounds records each ranking round of iterative schedules.
	Rounds []Round
}

// Round describes one ranking round.
type Round struct {
	KeepRatio float64
	Threshold float64
	Kept      int
}

// Dense returns all-ones masks.
func Dense(net nn.Network) *Result {
	return &Result{Masks: Ones(net)}
}

// SingleShotOptions configures SingleShot.
type SingleShotOptions struct {
	// Reinit redraws the Linear weights of the working copy with
	// Xavier-normal values before every accumulation iteration.
	Reinit bool
	Rand   *rand.Rand
}

// SingleShot scores net once (accumulating cfg.NumIters gradient passes by
// summation) and keeps the top 1-ratio fraction of the weights. A zero
// ratio or ScoreNone returns all-ones masks without scoring.
func SingleShot(net nn.Network, src data.Source, ratio float64, cfg *config.Config, opts SingleShotOptions) (*Result, error) {
	if ratio == 0 || cfg.ScoreMode == config.ScoreNone {
		return Dense(net), nil
	}
	if opts.Reinit && opts.Rand == nil {
		return nil, fmt.Errorf("pruning: reinit requires a random source")
	}

	work := net.Clone()
	products, err := accumulateProducts(work, src, cfg, opts)
	if err != nil {
		return nil, err
	}
	scores, err := Aggregate(products, liveWeights(work), cfg.ScoreMode)
	if err != nil {
		return nil, err
	}
	masks, threshold, err := Rank(scores, 1-ratio, RankOptions{Normalize: true})
	if err != nil {
		return nil, err
	}
	return &Result{
		Masks:        masks,
		Scores:       scores,
		Threshold:    threshold,
		Connectivity: ConnectedScores(net, masks, 1),
	}, nil
}

// accumulateProducts sums the gradient products of cfg.NumIters passes
// over fresh samples, optionally reinitialising work before each pass.
func accumulateProducts(work nn.Network, src data.Source, cfg *config.Config, opts SingleShotOptions) (Products, error) {
	var products Products
	for it := range max(cfg.NumIters, 1) {
		if opts.Reinit {
			if err := ReinitLinear(work, opts.Rand); err != nil {
				return nil, err
			}
		}
		batch, err := Sample(src, cfg)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it, err)
		}
		p, err := GradientProducts(work, batch, cfg)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it, err)
		}
		if products, err = Accumulate(products, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// Iterative prunes over cfg.NumItersPrune rounds with keep ratio
// (1-r)^(k/n). Before each round the working weights are reset to
// snapshot ⊙ mask. With cfg.Dynamic the live masked weights are scored;
// otherwise the snapshot weights are. Either way the previous mask is the
// exclusion set, so a pruned weight never returns and the kept count never
// grows from one round to the next.
func Iterative(net nn.Network, src data.Source, cfg *config.Config) (*Result, error) {
	work := net.Clone()
	snap := TakeSnapshot(net)
	res := &Result{Masks: Ones(net)}

	for round, keep := range KeepRatioSchedule(cfg.TargetRatio, cfg.NumItersPrune) {
		if err := snap.Restore(work, res.Masks); err != nil {
			return nil, err
		}
		products, err := accumulateProducts(work, src, cfg, SingleShotOptions{})
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		weights := snap.Weights()
		if cfg.Dynamic {
			weights = liveWeights(work)
		}
		scores, err := Aggregate(products, weights, cfg.ScoreMode)
		if err != nil {
			return nil, err
		}
		masks, threshold, err := Rank(scores, keep, RankOptions{Normalize: true, Exclude: res.Masks})
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		res.Masks, res.Scores, res.Threshold = masks, scores, threshold
		res.Rounds = append(res.Rounds, Round{KeepRatio: keep, Threshold: threshold, Kept: masks.Kept()})
	}
	res.Connectivity = ConnectedScores(net, res.Masks, 1)
	return res, nil
}

// RandomReorder permutes the entries of every mask independently,
// preserving per-layer density.
func RandomReorder(masks Masks, rng *rand.Rand) Masks {
	out := make(Masks, len(masks))
	for i, m := range masks {
		src := m.Data()
		perm := rng.Perm(len(src))
		dst := make([]float64, len(src))
		for j, p := range perm {
			dst[j] = src[p]
		}
		out[i] = tensor.New(m.Shape().Clone(), dst)
	}
	return out
}

// ReinitLinear redraws the weights of every Linear layer of net with
// Xavier-normal values.
func ReinitLinear(net nn.Network, rng *rand.Rand) error {
	for _, l := range net.Layers() {
		lin, ok := l.(*nn.Linear)
		if !ok {
			continue
		}
		w := tensor.XavierNormal(lin.Weight().Shape(), lin.InFeatures(), lin.OutFeatures(), rng)
		if err := lin.Weight().Set(w); err != nil {
			return fmt.Errorf("reinit %s: %w", lin.Name(), err)
		}
	}
	return nil
}

// Sample draws the scoring batch described by cfg from src.
func Sample(src data.Source, cfg *config.Config) (data.Batch, error) {
	spc := data.AdjustSamplesPerClass(cfg.SamplesPerClass, cfg.NumGroup)
	return data.Fetch(src, cfg.Classes, spc, data.FetchOptions{
		Mode:    cfg.SampleMode,
		Grouped: cfg.DataMode == config.DataGrouped,
	})
}
