// Package config holds the run configuration of the pruning engine and
// the presets that map algorithm names onto gradient and score modes.
package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Configuration errors.
var (
	ErrInvalidExperiment = errors.New("config: invalid experiment")
	ErrInvalidConfig     = errors.New("config: invalid configuration")
)

// Config is the record consumed by every pruning component.
type Config struct {
	// Experiment.
	Dataset string
	Network string
	Depth   int
	Width   int // base channel count; 0 selects the network default
	Classes int
	RunName string
	DataDir string
	Seed    int64
	Device  tensor.Device

	// Score estimation.
	DataMode        DataMode
	GradMode        GradMode
	ScoreMode       ScoreMode
	NumGroup        int
	SamplesPerClass int
	SampleMode      data.SampleMode
	NumIters        int
	Temperature     float64
	Flag            float64
	Reinit          bool

	// DownstreamOverrides maps a layer index to the index of the recorded
	// output used as its downstream activation in GradConnection mode.
	DownstreamOverrides map[int]int

	// Mask selection.
	PruneMode     string // "dense", "rank", "rank/random", "rank/iterative"
	RankAlgo      string
	TargetRatio   float64
	NumItersPrune int
	Dynamic       bool

	// Sparse training.
	BatchSize    int
	Epochs       int
	LearningRate float64
	WeightDecay  float64
	Momentum     float64
	OptimMode    string // "SGD" or "Adam"
	LRMode       string // "cosine", "step" or "preset"
	StepSize     int

	// Persistence.
	StorageMask bool
	StorePath   string
}

// Default returns the baseline configuration (CIFAR-10, VGG-19, 90% pruned,
// GraSP scores, single-shot ranking followed by a random reorder).
func Default() *Config {
	c := &Config{
		Dataset:         "cifar10",
		Network:         "vgg",
		Depth:           19,
		Classes:         10,
		RunName:         "test_exp",
		DataDir:         "data",
		SamplesPerClass: 10,
		NumIters:        1,
		Temperature:     200,
		Flag:            1,
		Reinit:          true,
		NumGroup:        1,
		PruneMode:       "rank/random",
		TargetRatio:     0.90,
		NumItersPrune:   100,
		Dynamic:         true,
		BatchSize:       128,
		Epochs:          180,
		LearningRate:    0.1,
		WeightDecay:     5e-4,
		Momentum:        0.9,
		OptimMode:       "SGD",
		LRMode:          "cosine",
		StepSize:        2,
		StorePath:       "runs/masks.db",
	}
	c.ApplyAlgorithm("grasp", nil)
	return c
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.DownstreamOverrides != nil {
		cp.DownstreamOverrides = make(map[int]int, len(c.DownstreamOverrides))
		for k, v := range c.DownstreamOverrides {
			cp.DownstreamOverrides[k] = v
		}
	}
	return &cp
}

// SetExperiment applies "dataset/network+depth/percent", e.g.
// "cifar10/resnet32/99" or "mnist/lenet5/90", together with the
// dataset-specific training defaults.
func (c *Config) SetExperiment(exp string) error {
	parts := strings.Split(exp, "/")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q is not dataset/model/ratio", ErrInvalidExperiment, exp)
	}

	var letters, digits strings.Builder
	for _, r := range parts[1] {
		switch {
		case unicode.IsLetter(r):
			letters.WriteRune(r)
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		}
	}
	depth, err := strconv.Atoi(digits.String())
	if err != nil {
		return fmt.Errorf("%w: model %q has no depth", ErrInvalidExperiment, parts[1])
	}
	percent, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || percent < 0 || percent >= 100 {
		return fmt.Errorf("%w: pruning percentage %q", ErrInvalidExperiment, parts[2])
	}

	c.Dataset = strings.ToLower(parts[0])
	c.Network = strings.ToLower(letters.String())
	c.Depth = depth
	c.TargetRatio = percent / 100
	c.applyDatasetDefaults()
	return nil
}

func (c *Config) applyDatasetDefaults() {
	switch {
	case strings.Contains(c.Dataset, "mnist"):
		c.BatchSize, c.Epochs, c.WeightDecay, c.Classes = 256, 80, 1e-4, 10
	case strings.Contains(c.Dataset, "cifar"):
		c.BatchSize, c.Epochs, c.WeightDecay = 128, 180, 5e-4
		c.Classes = 10
		if c.Dataset != "cifar10" {
			c.Classes = 100
			if strings.Contains(c.Network, "resnet") {
				c.SamplesPerClass, c.NumIters = 10, 2
			}
		}
	case strings.Contains(c.Dataset, "imagenet"):
		c.BatchSize, c.Epochs, c.Classes = 128, 180, 200
		switch {
		case strings.Contains(c.Network, "vgg"):
			c.WeightDecay, c.SamplesPerClass, c.NumIters = 5e-4, 5, 2
		case strings.Contains(c.Network, "resnet"):
			c.WeightDecay, c.SamplesPerClass, c.NumIters = 1e-4, 1, 10
		}
	}
}

// ApplyAlgorithm sets the data, gradient and score modes for a named
// ranking algorithm. Unknown names switch the run to dense (no pruning)
// and log a warning.
func (c *Config) ApplyAlgorithm(name string, logger *log.Logger) {
	c.RankAlgo = name
	switch strings.ToLower(name) {
	case "gcs":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataGrouped, GradPairwise, ScoreAbsSum, 2
	case "gcs-group":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataGrouped, GradPairwise, ScoreEuclidean, 5
	case "gcs-max":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataGrouped, GradConnection, ScoreEuclidean, 5
	case "grasp":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataByLabel, GradGraSP, ScoreSum, 1
	case "grass":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataByLabel, GradGraSP, ScoreAbsSum, 1
	case "snip":
		c.DataMode, c.GradMode, c.ScoreMode, c.NumGroup = DataByLabel, GradSNIP, ScoreAbsSum, 1
	case "syncw":
		c.DataMode, c.NumGroup = DataByLabel, 1
		switch {
		case strings.Contains(c.Network, "resnet"):
			c.GradMode, c.ScoreMode = GradConnection, ScoreSum
		case strings.Contains(c.Network, "vgg"):
			c.GradMode, c.ScoreMode = GradSynCW, ScoreSum
		}
	case "synflow":
	default:
		warnf(logger, "unknown rank algorithm %q (choose one of: %s); running dense", name, strings.Join(Algorithms, ", "))
		c.PruneMode = "dense"
	}
}

// Algorithms lists the rank algorithms known to ApplyAlgorithm.
var Algorithms = []string{"gcs", "gcs-group", "gcs-max", "grasp", "grass", "snip", "syncw", "synflow"}

// KnownAlgorithm reports whether name (case-insensitive) is in Algorithms.
func KnownAlgorithm(name string) bool {
	return slices.Contains(Algorithms, strings.ToLower(name))
}

// SetNumGroup sets the number of sample groups. A count that does not
// divide the number of classes falls back to 2 with a warning.
func (c *Config) SetNumGroup(n int, logger *log.Logger) {
	if n > 0 && c.Classes%n == 0 {
		c.NumGroup = n
		return
	}
	warnf(logger, "num_group %d must divide the number of classes (%d); using 2", n, c.Classes)
	c.NumGroup = 2
}

// ExperimentName returns e.g. "cifar10_resnet32_prune99_test_exp_rankrandom_grasp".
func (c *Config) ExperimentName() string {
	ratio := strconv.FormatFloat(math.Round(c.TargetRatio*1e8)/1e6, 'f', -1, 64)
	name := fmt.Sprintf("%s_%s%d_prune%s", c.Dataset, c.Network, c.Depth, strings.ReplaceAll(ratio, ".", "_"))
	if c.RunName != "" {
		name += "_" + c.RunName
	}
	mode := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, c.PruneMode)
	name += "_" + mode
	if c.RankAlgo != "" {
		name += "_" + c.RankAlgo
	}
	return name
}

// Validate checks the fields the pruning engine depends on.
func (c *Config) Validate() error {
	switch {
	case c.TargetRatio < 0 || c.TargetRatio >= 1:
		return fmt.Errorf("%w: target ratio %g outside [0, 1)", ErrInvalidConfig, c.TargetRatio)
	case c.NumGroup < 1:
		return fmt.Errorf("%w: num_group %d", ErrInvalidConfig, c.NumGroup)
	case c.SamplesPerClass < 1:
		return fmt.Errorf("%w: samples_per_class %d", ErrInvalidConfig, c.SamplesPerClass)
	case c.NumIters < 1:
		return fmt.Errorf("%w: num_iters %d", ErrInvalidConfig, c.NumIters)
	case c.NumItersPrune < 1:
		return fmt.Errorf("%w: num_iters_prune %d", ErrInvalidConfig, c.NumItersPrune)
	case c.Classes < 1:
		return fmt.Errorf("%w: classes %d", ErrInvalidConfig, c.Classes)
	case !c.GradMode.Valid():
		return fmt.Errorf("%w: grad mode %d", ErrInvalidConfig, int(c.GradMode))
	case !c.ScoreMode.Valid():
		return fmt.Errorf("%w: score mode %d", ErrInvalidConfig, int(c.ScoreMode))
	case c.Temperature <= 0:
		return fmt.Errorf("%w: temperature %g", ErrInvalidConfig, c.Temperature)
	}
	return nil
}

func warnf(logger *log.Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Printf("WARNING: "+format, args...)
}
