package pruning

import "errors"

// Sentinel errors.
var (
	// ErrShapeMismatch indicates masks or scores that do not line up with
	// the prunable layers.
	ErrShapeMismatch = errors.New("pruning: shape mismatch")

	// ErrEmptyPool indicates a ranking request over no parameters.
	ErrEmptyPool = errors.New("pruning: empty score pool")

	// ErrInvalidScores indicates NaN saliency scores.
	ErrInvalidScores = errors.New("pruning: invalid scores")

	// ErrUnsupportedMode indicates a prune mode that is named but not implemented.
	ErrUnsupportedMode = errors.New("pruning: unsupported prune mode")

	// ErrUnsupportedScoreMode indicates a score mode without an aggregation rule.
	ErrUnsupportedScoreMode = errors.New("pruning: unsupported score mode")

	// ErrEmptyGroup indicates fewer samples than groups.
	ErrEmptyGroup = errors.New("pruning: group has no samples")

	// ErrNoProducts indicates that gradient products were empty.
	ErrNoProducts = errors.New("pruning: no gradient products")
)
