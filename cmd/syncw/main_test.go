package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/maskstore"
	"github.com/hunkoufanchi777/SynCW/internal/serialization"
)

func parse(t *testing.T, args ...string) (*config.Config, options) {
	t.Helper()
	args = append([]string{"-env", filepath.Join(t.TempDir(), "missing.env")}, args...)
	cfg, opts, err := parseFlags(flag.NewFlagSet("syncw", flag.ContinueOnError), args)
	require.NoError(t, err)
	return cfg, opts
}

func TestParseFlags_Presets(t *testing.T) {
	cfg, _ := parse(t, "-config", "cifar10/resnet32/99", "-rank_algo", "syncw")
	assert.Equal(t, "resnet", cfg.Network)
	assert.Equal(t, 32, cfg.Depth)
	assert.InDelta(t, 0.99, cfg.TargetRatio, 1e-12)
	assert.Equal(t, config.GradConnection, cfg.GradMode)
	assert.Equal(t, config.ScoreSum, cfg.ScoreMode)

	cfg, _ = parse(t, "-config", "cifar10/vgg19/98", "-rank_algo", "gcs", "-num_group", "3")
	assert.Equal(t, config.GradPairwise, cfg.GradMode)
	assert.Equal(t, 2, cfg.NumGroup, "3 does not divide 10 classes")

	cfg, _ = parse(t, "-config", "mnist/lenet5/90", "-rank_algo", "nope")
	assert.Equal(t, "dense", cfg.PruneMode)
	assert.Equal(t, 256, cfg.BatchSize)

	cfg, _ = parse(t, "-config", "mnist/lenet5/90", "-grad_mode", "3", "-score_mode", "5", "-epoch", "2", "-samples_per", "4")
	assert.Equal(t, config.GradSNIP, cfg.GradMode)
	assert.Equal(t, config.ScoreAbs, cfg.ScoreMode)
	assert.Equal(t, 2, cfg.Epochs)
	assert.Equal(t, 4, cfg.SamplesPerClass)
}

func TestParseFlags_EnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("SYNCW_SEED=42\nSYNCW_RANK_ALGO=snip\nSYNCW_RUN=from_env\n"), 0o600))

	cfg, _, err := parseFlags(flag.NewFlagSet("syncw", flag.ContinueOnError), []string{"-env", env})
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "snip", cfg.RankAlgo)
	assert.Equal(t, "from_env", cfg.RunName)

	cfg, _, err = parseFlags(flag.NewFlagSet("syncw", flag.ContinueOnError), []string{"-env", env, "-rank_algo", "grasp", "-seed", "7"})
	require.NoError(t, err)
	assert.Equal(t, "grasp", cfg.RankAlgo)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestParseFlags_BadExperiment(t *testing.T) {
	_, _, err := parseFlags(flag.NewFlagSet("syncw", flag.ContinueOnError), []string{"-config", "cifar10/resnet"})
	assert.ErrorIs(t, err, config.ErrInvalidExperiment)
}

func TestRun_PruneStoreAndTrain(t *testing.T) {
	dir := t.TempDir()
	maskPath := filepath.Join(dir, "masks.safetensors")
	store := filepath.Join(dir, "runs.db")
	cfg, opts := parse(t,
		"-config", "mnist/mlp2/80",
		"-rank_algo", "snip",
		"-prune_mode", "rank",
		"-samples_per", "2",
		"-synthetic",
		"-samples", "200",
		"-epoch", "1",
		"-train_mode", "1",
		"-storage_mask",
		"-store", store,
		"-mask_out", maskPath,
		"-width", "16",
	)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, opts, &out))
	text := out.String()
	assert.Contains(t, text, "network: mlp")
	assert.Contains(t, text, "remaining:")
	assert.Contains(t, text, "coincidence:")
	assert.Contains(t, text, "stored run")
	assert.Contains(t, text, "best acc:")

	file, err := serialization.ReadFile(maskPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"fc1", "fc2", "fc3"}, file.TensorNames())

	s, err := maskstore.Open(store)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(cfg.ExperimentName())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.InDelta(t, 0.2, runs[0].KeepRatio, 0.01)
}
