package config

import "fmt"

// GradMode selects the gradient-product algorithm.
type GradMode int

// Gradient-product algorithms.
const (
	// GradGraSP differentiates the squared gradient norm (Hessian-gradient product).
	GradGraSP GradMode = iota
	// GradAggregateDot differentiates (Σ_i g_i)·g_i for each group i.
	GradAggregateDot
	// GradPairwise differentiates g_i·g_j for every unordered group pair.
	GradPairwise
	// GradSNIP returns the first-order gradient of each group.
	GradSNIP
	// GradConnection weights gradients by downstream connection strength.
	GradConnection
	// GradSynCW is GradConnection with a fixed next-layer offset and a scale flag.
	GradSynCW
)

// String returns the mode name.
func (m GradMode) String() string {
	switch m {
	case GradGraSP:
		return "grasp"
	case GradAggregateDot:
		return "aggregate-dot"
	case GradPairwise:
		return "pairwise"
	case GradSNIP:
		return "snip"
	case GradConnection:
		return "connection"
	case GradSynCW:
		return "syncw"
	default:
		return fmt.Sprintf("GradMode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m GradMode) Valid() bool {
	return m >= GradGraSP && m <= GradSynCW
}

// ScoreMode selects how gradient products are combined with weights.
type ScoreMode int

// Score aggregation rules. Mode 6 does not exist.
const (
	// ScoreNone disables ranking; single-shot pruning keeps everything.
	ScoreNone ScoreMode = 0
	// ScoreSum is Σ_g w⊙g.
	ScoreSum ScoreMode = 1
	// ScoreAbsSum is |Σ_g w⊙g|.
	ScoreAbsSum ScoreMode = 2
	// ScoreProduct is 1e6·Π_g |w⊙g|.
	ScoreProduct ScoreMode = 3
	// ScoreEuclidean is sqrt(Σ_g (w⊙g·1e6)²).
	ScoreEuclidean ScoreMode = 4
	// ScoreAbs is sqrt((w⊙g)²) over a single collapsed entry.
	ScoreAbs ScoreMode = 5
	// ScoreSquare is (w⊙g)² over a single collapsed entry.
	ScoreSquare ScoreMode = 7
)

// String returns the mode name.
func (m ScoreMode) String() string {
	switch m {
	case ScoreNone:
		return "none"
	case ScoreSum:
		return "sum"
	case ScoreAbsSum:
		return "abs-sum"
	case ScoreProduct:
		return "product"
	case ScoreEuclidean:
		return "euclidean"
	case ScoreAbs:
		return "abs"
	case ScoreSquare:
		return "square"
	default:
		return fmt.Sprintf("ScoreMode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m ScoreMode) Valid() bool {
	return (m >= ScoreNone && m <= ScoreAbs) || m == ScoreSquare
}

// DataMode selects how sampled examples are ordered before group splitting.
type DataMode int

// Data modes.
const (
	// DataByLabel keeps examples ordered by label.
	DataByLabel DataMode = iota
	// DataGrouped interleaves labels so that every group mixes classes.
	DataGrouped
)

// String returns the mode name.
func (m DataMode) String() string {
	if m == DataGrouped {
		return "grouped"
	}
	return "by-label"
}
