package pruning

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Scaling constants that keep products and squares in floating range.
const (
	productSeed    = 1e6
	euclideanScale = 1e6
)

// scoreHandler combines the per-entry products of one layer with its weight.
type scoreHandler func(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor

var scoreHandlers = map[config.ScoreMode]scoreHandler{
	config.ScoreSum:       scoreSum,
	config.ScoreAbsSum:    scoreAbsSum,
	config.ScoreProduct:   scoreProduct,
	config.ScoreEuclidean: scoreEuclidean,
	config.ScoreAbs:       scoreAbs,
	config.ScoreSquare:    scoreSquare,
}

// Aggregate combines gradient products with the weights into one score
// tensor per prunable layer.
//
//	ScoreSum:       Σ_g w⊙g
//	ScoreAbsSum:    |Σ_g w⊙g|
//	ScoreProduct:   1e6 · Π_g |w⊙g|
//	ScoreEuclidean: sqrt(Σ_g (w⊙g·1e6)²)
//	ScoreAbs:       |w⊙G|  with G = Σ_g g
//	ScoreSquare:    (w⊙G)² with G = Σ_g g
func Aggregate(products Products, weights []*tensor.Tensor, mode config.ScoreMode) (Scores, error) {
	handler, ok := scoreHandlers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScoreMode, mode)
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	for i, entry := range products {
		if len(entry) != len(weights) {
			return nil, fmt.Errorf("%w: entry %d has %d layers, want %d", ErrShapeMismatch, i, len(entry), len(weights))
		}
	}

	scores := make(Scores, len(weights))
	grads := make([]*tensor.Tensor, len(products))
	for l, w := range weights {
		for i, entry := range products {
			if !entry[l].Shape().Equal(w.Shape()) {
				return nil, fmt.Errorf("%w: layer %d product %v vs weight %v", ErrShapeMismatch, l, entry[l].Shape(), w.Shape())
			}
			grads[i] = entry[l]
		}
		scores[l] = handler(w, grads)
	}
	return scores, nil
}

func scoreSum(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	out := tensor.ZerosLike(w)
	for _, g := range grads {
		out.AddInPlace(w.Mul(g))
	}
	return out
}

func scoreAbsSum(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	return scoreSum(w, grads).Abs()
}

func scoreProduct(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	out := tensor.Full(w.Shape(), productSeed)
	for _, g := range grads {
		out.MulInPlace(w.Mul(g).Abs())
	}
	return out
}

func scoreEuclidean(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	out := tensor.ZerosLike(w)
	for _, g := range grads {
		out.AddInPlace(w.Mul(g).Scale(euclideanScale).Square())
	}
	return out.Sqrt()
}

func scoreAbs(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	return w.Mul(collapse(grads)).Abs()
}

func scoreSquare(w *tensor.Tensor, grads []*tensor.Tensor) *tensor.Tensor {
	return w.Mul(collapse(grads)).Square()
}

// collapse sums the entries of one layer into a single tensor.
func collapse(grads []*tensor.Tensor) *tensor.Tensor {
	out := grads[0].Clone()
	for _, g := range grads[1:] {
		out.AddInPlace(g)
	}
	return out
}

// Accumulate adds b into a entry-wise; a nil a returns b. Used to sum the
// products of several gradient-accumulation iterations.
func Accumulate(a, b Products) (Products, error) {
	if a == nil {
		return b, nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d product entries", ErrShapeMismatch, len(a), len(b))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return nil, fmt.Errorf("%w: entry %d has %d vs %d layers", ErrShapeMismatch, i, len(a[i]), len(b[i]))
		}
		for l := range a[i] {
			a[i][l] = a[i][l].Add(b[i][l])
		}
	}
	return a, nil
}
