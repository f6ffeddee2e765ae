package pruning

import (
	"fmt"
	"math"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// normEpsilon bounds the denominator of min-max normalisation.
const normEpsilon = 1e-10

// Products holds gradient-like tensors: one entry per group (or group
// pair), each with one tensor per prunable layer.
type Products [][]*tensor.Tensor

// gradHandler computes the products of one GradMode.
type gradHandler func(e *engine) (Products, error)

var gradHandlers = map[config.GradMode]gradHandler{
	config.GradGraSP:        (*engine).grasp,
	config.GradAggregateDot: (*engine).aggregateDot,
	config.GradPairwise:     (*engine).pairwise,
	config.GradSNIP:         (*engine).snip,
	config.GradConnection:   (*engine).connection,
	config.GradSynCW:        (*engine).connection,
}

// engine carries the state shared by the handlers of one call.
type engine struct {
	net     nn.Network
	cfg     *config.Config
	weights []*autodiff.Value
	groups  []data.Batch
}

// GradientProducts runs the forward/backward passes selected by
// cfg.GradMode over batch, split into cfg.NumGroup contiguous groups of
// ⌊N/NumGroup⌋ examples (the remainder is dropped). Logits are divided by
// cfg.Temperature before the cross-entropy loss.
//
// The result has NumGroup entries, except GradPairwise which yields one
// entry per unordered group pair. Weights without a gradient path yield
// zero tensors.
func GradientProducts(net nn.Network, batch data.Batch, cfg *config.Config) (Products, error) {
	handler, ok := gradHandlers[cfg.GradMode]
	if !ok {
		return nil, fmt.Errorf("pruning: unknown grad mode %d", int(cfg.GradMode))
	}
	if cfg.NumGroup < 1 {
		return nil, fmt.Errorf("%w: num_group %d", ErrEmptyGroup, cfg.NumGroup)
	}

	size := batch.Len() / cfg.NumGroup
	if size == 0 {
		return nil, fmt.Errorf("%w: %d samples for %d groups", ErrEmptyGroup, batch.Len(), cfg.NumGroup)
	}
	groups := make([]data.Batch, cfg.NumGroup)
	for i := range groups {
		groups[i] = batch.Slice(i*size, (i+1)*size)
	}

	e := &engine{
		net:     net,
		cfg:     cfg,
		weights: nn.WeightValues(net),
		groups:  groups,
	}
	return handler(e)
}

// loss runs group i forward on tp and returns the tempered cross-entropy.
func (e *engine) loss(tp *autodiff.Tape, i int, rec *nn.Recorder) *autodiff.Value {
	g := e.groups[i]
	logits := e.net.Forward(&nn.Pass{Tape: tp, Recorder: rec}, autodiff.Constant(g.Inputs))
	logits = tp.Scale(logits, 1/e.cfg.Temperature)
	return nn.CrossEntropy(tp, logits, g.Labels)
}

// groupGrads returns ∂loss_i/∂w for every group, kept on the graph.
func (e *engine) groupGrads(tp *autodiff.Tape) ([][]*autodiff.Value, error) {
	grads := make([][]*autodiff.Value, len(e.groups))
	for i := range e.groups {
		g, err := tp.Grad(e.loss(tp, i, nil), e.weights, autodiff.GradOptions{CreateGraph: true, AllowUnused: true})
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		grads[i] = g
	}
	return grads, nil
}

// gradOf differentiates a scalar objective w.r.t. the weights, returning
// zero tensors for unused weights.
func (e *engine) gradOf(tp *autodiff.Tape, objective *autodiff.Value, weights []*autodiff.Value) ([]*tensor.Tensor, error) {
	grads, err := tp.Grad(objective, weights, autodiff.GradOptions{AllowUnused: true})
	if err != nil {
		return nil, err
	}
	out := make([]*tensor.Tensor, len(weights))
	for i, g := range grads {
		if g == nil {
			out[i] = tensor.ZerosLike(weights[i].Data())
			continue
		}
		out[i] = g.Data()
	}
	return out, nil
}

// dotSum returns Σ_l a_l·b_l, skipping layers without gradients.
func dotSum(tp *autodiff.Tape, a, b []*autodiff.Value) *autodiff.Value {
	var total *autodiff.Value
	for l := range a {
		if a[l] == nil || b[l] == nil {
			continue
		}
		d := tp.Dot(a[l], b[l])
		if total == nil {
			total = d
		} else {
			total = tp.Add(total, d)
		}
	}
	if total == nil {
		return autodiff.Constant(tensor.Scalar(0))
	}
	return total
}

// grasp: ∂/∂w Σ_l ‖∂loss/∂w_l‖² per group.
func (e *engine) grasp() (Products, error) {
	out := make(Products, 0, len(e.groups))
	for i := range e.groups {
		tp := autodiff.NewTape()
		g, err := tp.Grad(e.loss(tp, i, nil), e.weights, autodiff.GradOptions{CreateGraph: true, AllowUnused: true})
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		hg, err := e.gradOf(tp, dotSum(tp, g, g), e.weights)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		out = append(out, hg)
	}
	return out, nil
}

// aggregateDot: ∂/∂w (Σ_j g_j)·g_i per group i.
func (e *engine) aggregateDot() (Products, error) {
	tp := autodiff.NewTape()
	grads, err := e.groupGrads(tp)
	if err != nil {
		return nil, err
	}

	agg := make([]*autodiff.Value, len(e.weights))
	for l := range agg {
		for _, g := range grads {
			switch {
			case g[l] == nil:
			case agg[l] == nil:
				agg[l] = g[l]
			default:
				agg[l] = tp.Add(agg[l], g[l])
			}
		}
	}

	out := make(Products, 0, len(grads))
	for i, g := range grads {
		p, err := e.gradOf(tp, dotSum(tp, agg, g), e.weights)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// pairwise: ∂/∂w g_i·g_j for every i < j.
func (e *engine) pairwise() (Products, error) {
	tp := autodiff.NewTape()
	grads, err := e.groupGrads(tp)
	if err != nil {
		return nil, err
	}

	var out Products
	for i := range grads {
		for j := i + 1; j < len(grads); j++ {
			p, err := e.gradOf(tp, dotSum(tp, grads[i], grads[j]), e.weights)
			if err != nil {
				return nil, fmt.Errorf("groups (%d,%d): %w", i, j, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// snip: ∂loss/∂w per group.
func (e *engine) snip() (Products, error) {
	out := make(Products, 0, len(e.groups))
	for i := range e.groups {
		tp := autodiff.NewTape()
		g, err := e.gradOf(tp, e.loss(tp, i, nil), e.weights)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// connection weights ∂loss/∂w_j by the normalised sensitivity of the
// downstream layer output to w_j (GradConnection, GradSynCW).
func (e *engine) connection() (Products, error) {
	layers := e.net.Layers()
	n := len(layers)
	scale := 1.0
	if e.cfg.GradMode == config.GradSynCW {
		scale = e.cfg.Flag
	}

	rec := nn.NewRecorder()
	out := make(Products, 0, len(e.groups))
	for i := range e.groups {
		p, err := func() ([]*tensor.Tensor, error) {
			release := rec.Acquire()
			defer release()

			tp := autodiff.NewTape()
			lossGrads, err := e.gradOf(tp, e.loss(tp, i, rec), e.weights)
			if err != nil {
				return nil, err
			}
			outputs := rec.Outputs()
			if len(outputs) != n {
				return nil, fmt.Errorf("%w: recorded %d outputs for %d layers", ErrShapeMismatch, len(outputs), n)
			}

			prod := make([]*tensor.Tensor, n)
			for j := range n {
				var objective *autodiff.Value
				if j == n-1 {
					objective = tp.Sum(outputs[j])
				} else {
					k, squared := e.downstream(layers, j)
					if squared {
						objective = tp.Sum(tp.Square(outputs[k]))
					} else {
						objective = tp.Sum(outputs[k])
					}
				}
				pg, err := e.gradOf(tp, objective, e.weights[j:j+1])
				if err != nil {
					return nil, fmt.Errorf("layer %s: %w", layers[j].Name(), err)
				}
				prod[j] = lossGrads[j].Mul(minMaxNormalize(pg[0]))
				if scale != 1 {
					prod[j].ScaleInPlace(scale)
				}
			}
			return prod, nil
		}()
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// downstream returns the index of the recorded output used for layer j and
// whether its squared sum is taken.
//
// GradSynCW always uses j+1 with a plain sum. GradConnection uses the
// first later layer on the main path; when that skips a shortcut
// projection (the first block after a downsample) the squared sum is used.
// Config.DownstreamOverrides takes precedence.
func (e *engine) downstream(layers []nn.Layer, j int) (int, bool) {
	if e.cfg.GradMode == config.GradSynCW {
		return j + 1, false
	}
	if k, ok := e.cfg.DownstreamOverrides[j]; ok && k > j && k < len(layers) {
		return k, k != j+1
	}
	k := j + 1
	for k < len(layers)-1 && layers[k].Role() == nn.RoleShortcut {
		k++
	}
	return k, k != j+1
}

// minMaxNormalize returns (x - mean) / max(max - min, eps).
func minMaxNormalize(x *tensor.Tensor) *tensor.Tensor {
	d := x.Data()
	if len(d) == 0 {
		return x.Clone()
	}
	mean := floats.Sum(d) / float64(len(d))
	span := math.Max(floats.Max(d)-floats.Min(d), normEpsilon)
	return x.AddScalar(-mean).Scale(1 / span)
}
