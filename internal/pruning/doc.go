// Package pruning computes saliency scores for the prunable weights of a
// network at initialization and turns them into binary keep masks.
//
// The pipeline is:
//
//	Fetch (data) -> GradientProducts -> Aggregate -> Rank -> Masks
//
// Strategies (Dense, SingleShot, Iterative, SynFlow) orchestrate the
// pipeline; RandomReorder and EffectiveMasks post-process masks and the
// diagnostics report connectivity and remaining ratios.
//
// Every strategy works on a deep copy of the caller's network and on an
// immutable Snapshot of its original weights; the caller's network is
// never modified.
package pruning
