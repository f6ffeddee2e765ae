// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pruning

import (
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/pruning"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Configuration.

// Config is the run configuration.
type Config = config.Config

// GradMode selects the gradient-product algorithm.
type GradMode = config.GradMode

// ScoreMode selects how gradient products become scores.
type ScoreMode = config.ScoreMode

// DataMode selects the ordering of the score sample.
type DataMode = config.DataMode

// Gradient modes.
const (
	GradGraSP        = config.GradGraSP
	GradAggregateDot = config.GradAggregateDot
	GradPairwise     = config.GradPairwise
	GradSNIP         = config.GradSNIP
	GradConnection   = config.GradConnection
	GradSynCW        = config.GradSynCW
)

// Score modes.
const (
	ScoreNone      = config.ScoreNone
	ScoreSum       = config.ScoreSum
	ScoreAbsSum    = config.ScoreAbsSum
	ScoreProduct   = config.ScoreProduct
	ScoreEuclidean = config.ScoreEuclidean
	ScoreAbs       = config.ScoreAbs
	ScoreSquare    = config.ScoreSquare
)

// Data modes.
const (
	DataByLabel = config.DataByLabel
	DataGrouped = config.DataGrouped
)

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// Algorithms lists the known rank algorithm names.
func Algorithms() []string {
	return append([]string(nil), config.Algorithms...)
}

// Data.

// Source yields labelled batches.
type Source = data.Source

// Batch is a set of examples with labels.
type Batch = data.Batch

// TensorSource is an in-memory Source.
type TensorSource = data.TensorSource

// NewTensorSource wraps inputs (first axis = examples) and labels.
func NewTensorSource(inputs *tensor.Tensor, labels []int, batchSize int, shuffle bool, rng *rand.Rand) (*TensorSource, error) {
	return data.NewTensorSource(inputs, labels, batchSize, shuffle, rng)
}

// Synthetic draws perClass Gaussian samples around one centre per class.
func Synthetic(classes, perClass int, sampleShape tensor.Shape, noise float64, rng *rand.Rand) (*tensor.Tensor, []int) {
	return data.Synthetic(classes, perClass, sampleShape, noise, rng)
}

// ErrInsufficientSamples is returned when a source cannot fill the sample.
var ErrInsufficientSamples = data.ErrInsufficientSamples

// Masks and results.

// Masks holds one 0/1 tensor per prunable layer.
type Masks = pruning.Masks

// Scores holds one saliency tensor per prunable layer.
type Scores = pruning.Scores

// Products holds gradient products per group.
type Products = pruning.Products

// Result is the outcome of a pruning strategy.
type Result = pruning.Result

// Round describes one ranking round.
type Round = pruning.Round

// RankOptions configures Rank.
type RankOptions = pruning.RankOptions

// Sentinel errors.
var (
	ErrShapeMismatch        = pruning.ErrShapeMismatch
	ErrEmptyPool            = pruning.ErrEmptyPool
	ErrInvalidScores        = pruning.ErrInvalidScores
	ErrUnsupportedMode      = pruning.ErrUnsupportedMode
	ErrUnsupportedScoreMode = pruning.ErrUnsupportedScoreMode
	ErrEmptyGroup           = pruning.ErrEmptyGroup
	ErrNoProducts           = pruning.ErrNoProducts
)

// Pruner.

// Pruner dispatches a configuration to a pruning strategy.
type Pruner = pruning.Pruner

// Option configures a Pruner.
type Option = pruning.Option

// Strategy is a pruning schedule.
type Strategy = pruning.Strategy

// Plan is the strategy selected for a prune mode.
type Plan = pruning.Plan

// Strategies.
const (
	StrategyDense      = pruning.StrategyDense
	StrategySingleShot = pruning.StrategySingleShot
	StrategyIterative  = pruning.StrategyIterative
	StrategySynFlow    = pruning.StrategySynFlow
)

// NewPruner creates a pruner for cfg.
func NewPruner(cfg *Config, opts ...Option) *Pruner {
	return pruning.NewPruner(cfg, opts...)
}

// WithLogger and WithRand configure a Pruner.
var (
	WithLogger = pruning.WithLogger
	WithRand   = pruning.WithRand
)

// Select maps a prune mode and rank algorithm onto a strategy.
func Select(pruneMode, rankAlgo string) (Plan, error) {
	return pruning.Select(pruneMode, rankAlgo)
}

// Strategies run directly.

// SingleShotOptions configures SingleShot.
type SingleShotOptions = pruning.SingleShotOptions

// SynFlowOptions configures SynFlow.
type SynFlowOptions = pruning.SynFlowOptions

// Dense returns all-ones masks for net.
func Dense(net nn.Network) *Result {
	return pruning.Dense(net)
}

// SingleShot scores net once and keeps the top (1-ratio) of its weights.
func SingleShot(net nn.Network, src Source, ratio float64, cfg *Config, opts SingleShotOptions) (*Result, error) {
	return pruning.SingleShot(net, src, ratio, cfg, opts)
}

// Iterative prunes over cfg.NumItersPrune rounds on a geometric schedule.
func Iterative(net nn.Network, src Source, cfg *Config) (*Result, error) {
	return pruning.Iterative(net, src, cfg)
}

// SynFlow prunes net without data over rounds rounds.
func SynFlow(net nn.Network, src Source, ratio float64, rounds int, opts SynFlowOptions) (*Result, error) {
	return pruning.SynFlow(net, src, ratio, rounds, opts)
}

// EffectiveMasks drops weights that cannot affect the output under masks.
func EffectiveMasks(net nn.Network, masks Masks, src Source) (Masks, error) {
	return pruning.EffectiveMasks(net, masks, src)
}

// Building blocks.

// Sample draws the class-balanced score sample described by cfg.
func Sample(src Source, cfg *Config) (Batch, error) {
	return pruning.Sample(src, cfg)
}

// GradientProducts runs the gradient-product engine on batch.
func GradientProducts(net nn.Network, batch Batch, cfg *Config) (Products, error) {
	return pruning.GradientProducts(net, batch, cfg)
}

// Aggregate turns gradient products into per-weight scores.
func Aggregate(products Products, weights []*tensor.Tensor, mode ScoreMode) (Scores, error) {
	return pruning.Aggregate(products, weights, mode)
}

// Rank keeps the globally highest-scoring fraction of weights.
func Rank(scores Scores, keepRatio float64, opts RankOptions) (Masks, float64, error) {
	return pruning.Rank(scores, keepRatio, opts)
}

// KeepRatioSchedule returns the keep ratio of each of rounds rounds.
func KeepRatioSchedule(targetRatio float64, rounds int) []float64 {
	return pruning.KeepRatioSchedule(targetRatio, rounds)
}

// RandomReorder shuffles every mask within its layer.
func RandomReorder(masks Masks, rng *rand.Rand) Masks {
	return pruning.RandomReorder(masks, rng)
}

// Diagnostics.

// Information summarises masks per layer.
type Information = pruning.Information

// Comparison contrasts nominal and effective sparsity.
type Comparison = pruning.Comparison

// KeepRatio returns the kept fraction of masks.
func KeepRatio(masks Masks) float64 {
	return pruning.KeepRatio(masks)
}

// LayerRatios returns the kept fraction of each mask.
func LayerRatios(masks Masks) []float64 {
	return pruning.LayerRatios(masks)
}

// Coincide returns the fraction of b's kept weights also kept by a.
func Coincide(a, b Masks) float64 {
	return pruning.Coincide(a, b)
}

// MaskInformation returns the per-layer and overall kept fractions.
func MaskInformation(net nn.Network, masks Masks) Information {
	return pruning.MaskInformation(net, masks)
}

// Compare computes effective masks and both kept fractions.
func Compare(net nn.Network, masks Masks, src Source) (Comparison, error) {
	return pruning.Compare(net, masks, src)
}

// ConnectedScores counts connected channels across padded convolutions.
func ConnectedScores(net nn.Network, masks Masks, mode int) int {
	return pruning.ConnectedScores(net, masks, mode)
}
