package config_test

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, config.GradGraSP, c.GradMode)
	assert.Equal(t, config.ScoreSum, c.ScoreMode)
	assert.Equal(t, 200.0, c.Temperature)
}

func TestSetExperiment(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.SetExperiment("cifar100/resnet32/98"))
	assert.Equal(t, "resnet", c.Network)
	assert.Equal(t, 32, c.Depth)
	assert.InDelta(t, 0.98, c.TargetRatio, 1e-12)
	assert.Equal(t, 100, c.Classes)
	assert.Equal(t, 2, c.NumIters)

	require.NoError(t, c.SetExperiment("mnist/lenet5/90"))
	assert.Equal(t, "lenet", c.Network)
	assert.Equal(t, 5, c.Depth)
	assert.Equal(t, 256, c.BatchSize)
	assert.Equal(t, 10, c.Classes)

	for _, bad := range []string{"cifar10/resnet32", "cifar10/resnet/90", "cifar10/vgg19/x", "cifar10/vgg19/100"} {
		assert.ErrorIs(t, c.SetExperiment(bad), config.ErrInvalidExperiment, bad)
	}
}

func TestApplyAlgorithm_Presets(t *testing.T) {
	tests := []struct {
		name    string
		network string
		data    config.DataMode
		grad    config.GradMode
		score   config.ScoreMode
		groups  int
	}{
		{"gcs", "vgg", config.DataGrouped, config.GradPairwise, config.ScoreAbsSum, 2},
		{"gcs-group", "vgg", config.DataGrouped, config.GradPairwise, config.ScoreEuclidean, 5},
		{"gcs-max", "vgg", config.DataGrouped, config.GradConnection, config.ScoreEuclidean, 5},
		{"GraSP", "vgg", config.DataByLabel, config.GradGraSP, config.ScoreSum, 1},
		{"grass", "vgg", config.DataByLabel, config.GradGraSP, config.ScoreAbsSum, 1},
		{"snip", "vgg", config.DataByLabel, config.GradSNIP, config.ScoreAbsSum, 1},
		{"synCW", "vgg", config.DataByLabel, config.GradSynCW, config.ScoreSum, 1},
		{"synCW", "resnet", config.DataByLabel, config.GradConnection, config.ScoreSum, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.network, func(t *testing.T) {
			c := config.Default()
			c.Network = tt.network
			c.ApplyAlgorithm(tt.name, nil)
			assert.Equal(t, tt.data, c.DataMode)
			assert.Equal(t, tt.grad, c.GradMode)
			assert.Equal(t, tt.score, c.ScoreMode)
			assert.Equal(t, tt.groups, c.NumGroup)
			assert.Equal(t, "rank/random", c.PruneMode)
		})
	}
}

func TestApplyAlgorithm_UnknownFallsBackToDense(t *testing.T) {
	var buf bytes.Buffer
	c := config.Default()
	c.ApplyAlgorithm("magnitude", log.New(&buf, "", 0))
	assert.Equal(t, "dense", c.PruneMode)
	assert.Contains(t, buf.String(), "WARNING")
}

func TestApplyEnv_UnknownAlgorithmWarns(t *testing.T) {
	var buf bytes.Buffer
	c := config.Default()
	require.NoError(t, c.ApplyEnv(map[string]string{config.EnvRankAlgo: "bogus"}, log.New(&buf, "", 0)))
	assert.Equal(t, "dense", c.PruneMode)
	assert.Equal(t, "bogus", c.RankAlgo)
	assert.Contains(t, buf.String(), "WARNING")
	assert.Contains(t, buf.String(), "bogus")
}

func TestSetNumGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	c := config.Default()

	c.SetNumGroup(5, logger)
	assert.Equal(t, 5, c.NumGroup)
	assert.Empty(t, buf.String())

	c.SetNumGroup(3, logger)
	assert.Equal(t, 2, c.NumGroup)
	assert.Contains(t, buf.String(), "num_group 3")
}

func TestValidate(t *testing.T) {
	c := config.Default()
	c.ScoreMode = 6
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidConfig)

	c = config.Default()
	c.TargetRatio = 1
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidConfig)

	c = config.Default()
	c.GradMode = 9
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidConfig)
}

func TestExperimentName(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.SetExperiment("cifar10/resnet32/99.5"))
	assert.Equal(t, "cifar10_resnet32_prune99_5_test_exp_rankrandom_grasp", c.ExperimentName())
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SYNCW_SEED=42\nSYNCW_DATA_DIR=/tmp/mnist\nSYNCW_DYNAMIC=false\nSYNCW_RANK_ALGO=snip\n"), 0o600))

	env, err := config.ReadEnvFile(path)
	require.NoError(t, err)

	c := config.Default()
	require.NoError(t, c.ApplyEnv(env, nil))
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, "/tmp/mnist", c.DataDir)
	assert.False(t, c.Dynamic)
	assert.Equal(t, config.GradSNIP, c.GradMode)

	missing, err := config.ReadEnvFile(filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.ErrorIs(t, c.ApplyEnv(map[string]string{config.EnvSeed: "abc"}, nil), config.ErrInvalidConfig)
	assert.ErrorIs(t, c.ApplyEnv(map[string]string{config.EnvDevice: "cuda"}, nil), config.ErrInvalidConfig)
	require.NoError(t, c.ApplyEnv(map[string]string{config.EnvDevice: "CPU"}, nil))
	assert.Equal(t, "CPU", c.Device.String())
}

func TestClone(t *testing.T) {
	c := config.Default()
	c.DownstreamOverrides = map[int]int{12: 14}
	cp := c.Clone()
	cp.DownstreamOverrides[12] = 99
	assert.Equal(t, 14, c.DownstreamOverrides[12])
}
