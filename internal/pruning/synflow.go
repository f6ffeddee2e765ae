package pruning

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// SynFlowOptions configures SynFlow.
type SynFlowOptions struct {
	// EffectiveOnly keeps exactly the parameters with nonzero flow.
	EffectiveOnly bool

	// Seed is the starting mask; nil starts from all ones.
	Seed Masks

	// Dynamic scores the live (masked, absolute) weights. Otherwise the
	// snapshot weights are scored and pruned positions are excluded.
	Dynamic bool
}

// SynFlow runs data-free iterative synaptic-flow pruning.
//
// A copy of net is linearised by taking the absolute value of every
// parameter. Each round sets the prunable weights to |snapshot ⊙ mask|,
// evaluates Σ net(1) on a single all-ones example shaped like the first
// example of src, and scores |w ⊙ ∂Σout/∂w| without normalisation.
func SynFlow(net nn.Network, src data.Source, ratio float64, rounds int, opts SynFlowOptions) (*Result, error) {
	first, ok := src.Iter().Next()
	if !ok || first.Len() == 0 {
		return nil, fmt.Errorf("synflow input shape: %w", data.ErrInsufficientSamples)
	}
	shape := append(tensor.Shape{1}, first.Inputs.Shape()[1:]...)
	input := autodiff.Constant(tensor.Ones(shape))

	work := net.Clone()
	for _, p := range work.Parameters() {
		_ = p.Set(p.Tensor().Abs())
	}
	snap := TakeSnapshot(net)

	res := &Result{Masks: Ones(net)}
	if opts.Seed != nil {
		if err := opts.Seed.Validate(net); err != nil {
			return nil, err
		}
		res.Masks = opts.Seed.Clone()
	}

	weightValues := nn.WeightValues(work)
	for round, keep := range KeepRatioSchedule(ratio, rounds) {
		masked, err := snap.Masked(res.Masks)
		if err != nil {
			return nil, err
		}
		for i := range masked {
			masked[i] = masked[i].Abs()
		}
		if err := setWeights(work, masked); err != nil {
			return nil, err
		}

		tp := autodiff.NewTape()
		out := work.Forward(nn.NewPass(tp), input)
		grads, err := tp.Grad(tp.Sum(out), weightValues, autodiff.GradOptions{AllowUnused: true})
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		weights, exclude := masked, Masks(nil)
		if !opts.Dynamic {
			weights, exclude = snap.Weights(), res.Masks
		}
		scores := make(Scores, len(weights))
		for i, w := range weights {
			if grads[i] == nil {
				scores[i] = tensor.ZerosLike(w)
				continue
			}
			scores[i] = w.Mul(grads[i].Data()).Abs()
		}

		masks, threshold, err := Rank(scores, keep, RankOptions{EffectiveOnly: opts.EffectiveOnly, Exclude: exclude})
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		res.Masks, res.Scores, res.Threshold = masks, scores, threshold
		res.Rounds = append(res.Rounds, Round{KeepRatio: keep, Threshold: threshold, Kept: masks.Kept()})
	}
	res.Connectivity = ConnectedScores(net, res.Masks, 1)
	return res, nil
}

// EffectiveMasks removes the parameters of masks that carry no synaptic
// flow: one SynFlow round at ratio 0, seeded with masks, keeping exactly
// the nonzero scores of the live weights. The result is never denser than
// masks.
func EffectiveMasks(net nn.Network, masks Masks, src data.Source) (Masks, error) {
	res, err := SynFlow(net, src, 0, 1, SynFlowOptions{EffectiveOnly: true, Seed: masks, Dynamic: true})
	if err != nil {
		return nil, fmt.Errorf("effective masks: %w", err)
	}
	return res.Masks, nil
}
