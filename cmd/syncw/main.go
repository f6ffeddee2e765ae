// Package main provides the syncw CLI: prune a network at initialization,
// report the resulting masks, optionally store them and train the sparse
// network.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/maskstore"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/pruning"
	"github.com/hunkoufanchi777/SynCW/internal/report"
	"github.com/hunkoufanchi777/SynCW/internal/serialization"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"github.com/hunkoufanchi777/SynCW/internal/train"
)

const version = "v0.1.0"

// options holds the command-line values that are not Config fields.
type options struct {
	envFile    string
	synthetic  bool
	maxSamples int
	trainMode  int
	maskOut    string
	verbose    bool
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("syncw %s\n", version)
			return
		case "runs":
			if err := listRuns(os.Args[2:]); err != nil {
				log.Fatalf("runs: %v", err)
			}
			return
		}
	}

	cfg, opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatalf("syncw: %v", err)
	}
}

// parseFlags builds the run configuration: defaults, then the experiment
// triple, then the .env file, then explicitly set flags.
func parseFlags(fs *flag.FlagSet, args []string) (*config.Config, options, error) {
	var opts options
	exp := fs.String("config", "cifar10/resnet32/99", "dataset/model(network depth)/pruning percentage, e.g. cifar10/vgg19/98, mnist/lenet5/90")
	runName := fs.String("run", "test_exp", "experiment notes")
	epochs := fs.Int("epoch", 0, "training epochs (0 keeps the dataset default)")
	batchSize := fs.Int("batch_size", 0, "batch size (0 keeps the dataset default)")
	l2 := fs.Float64("l2", 0, "weight decay (0 keeps the dataset default)")
	lr := fs.Float64("lr", 0.1, "learning rate")
	lrMode := fs.String("lr_mode", "cosine", "cosine, preset or step")
	optimMode := fs.String("optim_mode", "SGD", "SGD or Adam")
	storageMask := fs.Bool("storage_mask", false, "store the masks in the run database")
	dataDir := fs.String("dp", "", "dataset path (MNIST IDX files)")
	rankAlgo := fs.String("rank_algo", "grasp", "rank algorithm: "+strings.Join(config.Algorithms, ", "))
	pruneMode := fs.String("prune_mode", "rank/random", "dense, rank, rank/random, rank/iterative")
	dataMode := fs.Int("data_mode", -1, "override the preset data mode")
	gradMode := fs.Int("grad_mode", -1, "override the preset gradient mode")
	scoreMode := fs.Int("score_mode", -1, "override the preset score mode")
	numGroup := fs.Int("num_group", 0, "number of sample groups (must divide the class count)")
	samplesPer := fs.Int("samples_per", 0, "samples per class for scoring")
	numIters := fs.Int("num_iters", 0, "gradient passes accumulated per round")
	numItersPrune := fs.Int("num_iters_prune", 100, "rounds of iterative pruning")
	dynamic := fs.Bool("dynamic", true, "score live masked weights between rounds")
	stepSize := fs.Int("step_size", 2, "epochs per step of the step schedule")
	flagScale := fs.Float64("flag", 1, "scale of the synCW connection products")
	width := fs.Int("width", 0, "base channel count (0 selects the network default)")
	seed := fs.Int64("seed", 0, "random seed")
	storePath := fs.String("store", "", "run database directory")
	device := fs.String("device", "cpu", "compute device")
	fs.StringVar(&opts.envFile, "env", ".env", "environment file")
	fs.BoolVar(&opts.synthetic, "synthetic", false, "use a synthetic dataset instead of files")
	fs.IntVar(&opts.maxSamples, "samples", 2000, "max examples to load (0 = all)")
	fs.IntVar(&opts.trainMode, "train_mode", 0, "train the pruned network when non-zero")
	fs.StringVar(&opts.maskOut, "mask_out", "", "write the masks to this safetensors file")
	fs.BoolVar(&opts.verbose, "v", false, "log pruning progress")
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg := config.Default()
	if err := cfg.SetExperiment(*exp); err != nil {
		return nil, opts, err
	}
	cfg.RunName = *runName
	cfg.LRMode, cfg.OptimMode = *lrMode, *optimMode
	cfg.LearningRate = *lr
	cfg.StorageMask = *storageMask
	cfg.NumItersPrune, cfg.Dynamic = *numItersPrune, *dynamic
	cfg.StepSize, cfg.Flag, cfg.Width = *stepSize, *flagScale, *width
	cfg.PruneMode = *pruneMode

	env, err := config.ReadEnvFile(opts.envFile)
	if err != nil {
		return nil, opts, err
	}
	if err := cfg.ApplyEnv(env, logger); err != nil {
		return nil, opts, err
	}

	if set["rank_algo"] || env[config.EnvRankAlgo] == "" {
		cfg.ApplyAlgorithm(*rankAlgo, logger)
	}
	if set["dp"] {
		cfg.DataDir = *dataDir
	}
	if set["seed"] {
		cfg.Seed = *seed
	}
	if set["device"] {
		dev, err := tensor.ParseDevice(*device)
		if err != nil {
			return nil, opts, err
		}
		cfg.Device = dev
	}
	if set["store"] {
		cfg.StorePath = *storePath
	}
	if set["dynamic"] {
		cfg.Dynamic = *dynamic
	}
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *l2 > 0 {
		cfg.WeightDecay = *l2
	}
	if *dataMode >= 0 {
		cfg.DataMode = config.DataMode(*dataMode)
	}
	if *gradMode >= 0 {
		cfg.GradMode = config.GradMode(*gradMode)
	}
	if *scoreMode >= 0 {
		cfg.ScoreMode = config.ScoreMode(*scoreMode)
	}
	if *samplesPer > 0 {
		cfg.SamplesPerClass = *samplesPer
	}
	if *numIters > 0 {
		cfg.NumIters = *numIters
	}
	if *numGroup > 0 {
		cfg.SetNumGroup(*numGroup, logger)
	}
	return cfg, opts, nil
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(os.Stderr, "[syncw] ", log.LstdFlags)
	}
	fmt.Fprintf(out, "=> experiment: %s\n", cfg.ExperimentName())
	logger.Printf("device: %s", cfg.Device)

	rng := rand.New(rand.NewSource(cfg.Seed))
	ds, err := loadDataset(cfg, opts, rng, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "=> data: %s, %d train / %d test examples, sample shape %v\n",
		ds.origin, ds.train.Len(), ds.test.Len(), ds.train.SampleShape())

	shape := ds.train.SampleShape()
	net, err := nn.Build(nn.Architecture{
		Network:    cfg.Network,
		Depth:      cfg.Depth,
		Width:      cfg.Width,
		InChannels: shape[0],
		InputSize:  shape[1],
		Classes:    cfg.Classes,
	}, rng)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "=> network: %s, %d prunable layers, %d weights\n", net.Name(), len(net.Layers()), nn.NumWeights(net))

	pruner := pruning.NewPruner(cfg, pruning.WithLogger(logger), pruning.WithRand(rng))
	res, err := pruner.Prune(net, ds.train)
	if err != nil {
		return err
	}

	info := pruning.MaskInformation(net, res.Masks)
	if err := report.WriteRounds(out, res.Rounds); err != nil {
		return err
	}
	if err := report.WriteInformation(out, info); err != nil {
		return err
	}
	cmp, err := pruning.Compare(net, res.Masks, ds.train)
	if err != nil {
		return err
	}
	if err := report.WriteComparison(out, info, cmp); err != nil {
		return err
	}

	names := layerNames(net)
	if opts.maskOut != "" {
		entries := make([]serialization.Entry, len(names))
		for i, name := range names {
			entries[i] = serialization.Entry{Name: name, Tensor: res.Masks[i], DType: serialization.DTypeU8}
		}
		meta := map[string]string{"experiment": cfg.ExperimentName(), "network": net.Name()}
		if err := serialization.WriteFile(opts.maskOut, entries, meta); err != nil {
			return err
		}
		sum, err := serialization.FileChecksum(opts.maskOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "=> masks written to %s (sha256 %s)\n", opts.maskOut, sum)
	}
	if cfg.StorageMask {
		if err := storeRun(cfg, net, names, res, out); err != nil {
			return err
		}
	}

	if opts.trainMode == 0 || cfg.Epochs == 0 {
		return nil
	}
	trainer, err := train.New(net, res.Masks, train.OptionsFromConfig(cfg), log.New(out, "", 0))
	if err != nil {
		return err
	}
	summary, err := trainer.Fit(ctx, ds.train, ds.test)
	if err != nil {
		return err
	}
	return report.WriteTraining(out, summary)
}

func storeRun(cfg *config.Config, net *nn.Model, names []string, res *pruning.Result, out io.Writer) error {
	store, err := maskstore.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Save(maskstore.Record{
		Experiment:  cfg.ExperimentName(),
		Network:     net.Name(),
		RankAlgo:    cfg.RankAlgo,
		TargetRatio: cfg.TargetRatio,
		KeepRatio:   pruning.KeepRatio(res.Masks),
		Layers:      names,
		LayerRatios: pruning.LayerRatios(res.Masks),
	}, res.Masks)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "=> stored run %s in %s\n", rec.ID, cfg.StorePath)
	return nil
}

func listRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	path := fs.String("store", config.Default().StorePath, "run database directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := maskstore.Open(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(fs.Arg(0))
	if err != nil {
		return err
	}
	t := report.NewTable("id", "experiment", "algo", "target", "kept", "created").
		SetAlign(3, report.AlignRight).SetAlign(4, report.AlignRight)
	for _, r := range runs {
		t.AddRow(r.ID, r.Experiment, r.RankAlgo,
			fmt.Sprintf("%.2f%%", r.TargetRatio*100), fmt.Sprintf("%.2f%%", r.KeepRatio*100), r.CreatedAt)
	}
	return t.Render(os.Stdout)
}

func layerNames(net nn.Network) []string {
	layers := net.Layers()
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name()
	}
	return names
}
