package pruning

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"strings"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
)

// Strategy identifies a pruning strategy.
type Strategy int

// Strategies.
const (
	StrategyDense Strategy = iota
	StrategySingleShot
	StrategyIterative
	StrategySynFlow
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyDense:
		return "dense"
	case StrategySingleShot:
		return "single-shot"
	case StrategyIterative:
		return "iterative"
	case StrategySynFlow:
		return "synflow"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Plan is the strategy selected for a prune mode and rank algorithm.
type Plan struct {
	Strategy      Strategy
	RandomReorder bool

	// Fallback explains a substitution with Dense; empty otherwise.
	Fallback string
}

// Select maps a prune mode ("dense", "rank", "rank/random",
// "rank/iterative", ...) and rank algorithm onto a Plan. It is a pure
// function. Unknown modes and algorithms select Dense with a Fallback
// note; the unimplemented "coin" mode returns ErrUnsupportedMode.
func Select(pruneMode, rankAlgo string) (Plan, error) {
	mode := strings.ToLower(pruneMode)
	algo := strings.ToLower(rankAlgo)

	switch {
	case strings.Contains(mode, "dense"):
		return Plan{Strategy: StrategyDense}, nil
	case strings.Contains(mode, "rank"):
		if !config.KnownAlgorithm(algo) {
			return Plan{Strategy: StrategyDense, Fallback: fmt.Sprintf("unknown rank algorithm %q", rankAlgo)}, nil
		}
		plan := Plan{Strategy: StrategySingleShot, RandomReorder: strings.Contains(mode, "random")}
		switch {
		case algo == "synflow":
			plan.Strategy = StrategySynFlow
		case strings.Contains(mode, "iterative"):
			plan.Strategy = StrategyIterative
		}
		return plan, nil
	case strings.Contains(mode, "coin"):
		return Plan{}, fmt.Errorf("%w: %s", ErrUnsupportedMode, pruneMode)
	default:
		return Plan{Strategy: StrategyDense, Fallback: fmt.Sprintf("unknown prune mode %q", pruneMode)}, nil
	}
}

// Pruner dispatches a configuration onto a strategy.
type Pruner struct {
	cfg    *config.Config
	logger *log.Logger
	rng    *rand.Rand
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithLogger sets the destination of progress and warning messages.
func WithLogger(l *log.Logger) Option {
	return func(p *Pruner) { p.logger = l }
}

// WithRand sets the random source used for reinitialisation and random
// reordering.
func WithRand(r *rand.Rand) Option {
	return func(p *Pruner) { p.rng = r }
}

// NewPruner creates a pruner for cfg. By default messages are discarded
// and randomness is seeded from cfg.Seed.
func NewPruner(cfg *config.Config, opts ...Option) *Pruner {
	p := &Pruner{
		cfg:    cfg,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	return p
}

// Config returns the pruner configuration.
func (p *Pruner) Config() *config.Config {
	return p.cfg
}

// Prune computes masks for net. The network itself is not modified.
func (p *Pruner) Prune(net nn.Network, src data.Source) (*Result, error) {
	plan, err := Select(p.cfg.PruneMode, p.cfg.RankAlgo)
	if err != nil {
		return nil, err
	}
	if plan.Fallback != "" {
		p.logger.Printf("WARNING: %s; no pruning", plan.Fallback)
	}
	if plan.Strategy != StrategyDense {
		if err := p.cfg.Validate(); err != nil {
			return nil, err
		}
	}
	p.logger.Printf("prune: strategy=%s rank_algo=%s target_ratio=%g", plan.Strategy, p.cfg.RankAlgo, p.cfg.TargetRatio)

	var res *Result
	switch plan.Strategy {
	case StrategyDense:
		res = Dense(net)
	case StrategySingleShot:
		res, err = SingleShot(net, src, p.cfg.TargetRatio, p.cfg, SingleShotOptions{Reinit: p.cfg.Reinit, Rand: p.rng})
	case StrategyIterative:
		res, err = Iterative(net, src, p.cfg)
	case StrategySynFlow:
		res, err = SynFlow(net, src, p.cfg.TargetRatio, p.cfg.NumItersPrune, SynFlowOptions{Dynamic: p.cfg.Dynamic})
	}
	if err != nil {
		return nil, fmt.Errorf("%s pruning: %w", plan.Strategy, err)
	}

	for i, r := range res.Rounds {
		p.logger.Printf("round %d/%d: keep ratio=%.6f acceptable score=%e kept=%d", i+1, len(res.Rounds), r.KeepRatio, r.Threshold, r.Kept)
	}
	if plan.Strategy != StrategyDense {
		p.logger.Printf("accept: %e, remaining: %d, connected scores: %d", res.Threshold, res.Masks.Kept(), res.Connectivity)
	}

	if plan.RandomReorder {
		res.Masks = RandomReorder(res.Masks, p.rng)
		res.Connectivity = ConnectedScores(net, res.Masks, 1)
		p.logger.Printf("rank/random: connected scores: %d", res.Connectivity)
	}
	return res, nil
}
