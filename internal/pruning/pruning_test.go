package pruning_test

import (
	"bytes"
	"log"
	"math/rand"
	"testing"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/pruning"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClasses = 3

func newMLP(t *testing.T, seed int64) *nn.Model {
	t.Helper()
	m, err := nn.NewMLP(4, []int{6}, testClasses, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return m
}

func newSource(t *testing.T, sampleShape tensor.Shape) *data.TensorSource {
	t.Helper()
	inputs, labels := data.Synthetic(testClasses, 12, sampleShape, 0.5, rand.New(rand.NewSource(3)))
	src, err := data.NewTensorSource(inputs, labels, 16, true, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	return src
}

func testConfig(algo string) *config.Config {
	c := config.Default()
	c.Network = "mlp"
	c.Classes = testClasses
	c.SamplesPerClass = 2
	c.NumItersPrune = 3
	c.TargetRatio = 0.5
	c.PruneMode = "rank"
	c.ApplyAlgorithm(algo, nil)
	return c
}

func weightsOf(net nn.Network) []*tensor.Tensor {
	var out []*tensor.Tensor
	for _, l := range net.Layers() {
		out = append(out, l.Weight().Tensor().Clone())
	}
	return out
}

func assertUnchanged(t *testing.T, before []*tensor.Tensor, net nn.Network) {
	t.Helper()
	for i, l := range net.Layers() {
		assert.True(t, before[i].Equal(l.Weight().Tensor()), "layer %s was modified", l.Name())
	}
}

func TestDense_AllOnes(t *testing.T) {
	net := newMLP(t, 1)
	res := pruning.Dense(net)
	require.NoError(t, res.Masks.Validate(net))
	assert.Equal(t, res.Masks.Total(), res.Masks.Kept())

	for _, algo := range []string{"grasp", "snip", "synflow", "gcs"} {
		cfg := testConfig(algo)
		cfg.PruneMode = "dense"
		res, err := pruning.NewPruner(cfg).Prune(net, newSource(t, tensor.Shape{4}))
		require.NoError(t, err)
		assert.Equal(t, res.Masks.Total(), res.Masks.Kept(), algo)
	}
}

func TestSingleShot_ZeroRatioIsDense(t *testing.T) {
	net := newMLP(t, 1)
	cfg := testConfig("grasp")

	res, err := pruning.SingleShot(net, newSource(t, tensor.Shape{4}), 0, cfg, pruning.SingleShotOptions{})
	require.NoError(t, err)
	assert.Equal(t, pruning.Ones(net), res.Masks)

	cfg.ScoreMode = config.ScoreNone
	res, err = pruning.SingleShot(net, newSource(t, tensor.Shape{4}), 0.5, cfg, pruning.SingleShotOptions{})
	require.NoError(t, err)
	assert.Equal(t, res.Masks.Total(), res.Masks.Kept())
}

func TestSingleShot_Algorithms(t *testing.T) {
	for _, algo := range []string{"grasp", "grass", "snip", "gcs", "gcs-group", "gcs-max", "syncw"} {
		t.Run(algo, func(t *testing.T) {
			net := newMLP(t, 5)
			before := weightsOf(net)
			cfg := testConfig(algo)
			if algo == "gcs-group" || algo == "gcs-max" {
				cfg.NumGroup = testClasses
			}
			cfg.NumIters = 2

			res, err := pruning.SingleShot(net, newSource(t, tensor.Shape{4}), cfg.TargetRatio, cfg,
				pruning.SingleShotOptions{Reinit: true, Rand: rand.New(rand.NewSource(9))})
			require.NoError(t, err)
			require.NoError(t, res.Masks.Validate(net))
			assert.GreaterOrEqual(t, res.Masks.Kept(), res.Masks.Total()/2)
			assert.Less(t, res.Masks.Kept(), res.Masks.Total())
			assertUnchanged(t, before, net)
		})
	}
}

func TestIterative_FinalKeepRatio(t *testing.T) {
	for _, dynamic := range []bool{true, false} {
		net := newMLP(t, 2)
		before := weightsOf(net)
		cfg := testConfig("snip")
		cfg.Dynamic = dynamic
		cfg.TargetRatio = 0.8

		res, err := pruning.Iterative(net, newSource(t, tensor.Shape{4}), cfg)
		require.NoError(t, err)
		require.Len(t, res.Rounds, cfg.NumItersPrune)
		assert.InDelta(t, 0.2, res.Rounds[len(res.Rounds)-1].KeepRatio, 1e-12)
		assert.GreaterOrEqual(t, res.Masks.Kept(), int(float64(res.Masks.Total())*0.2))
		for i := 1; i < len(res.Rounds); i++ {
			assert.Less(t, res.Rounds[i].KeepRatio, res.Rounds[i-1].KeepRatio)
		}
		assertUnchanged(t, before, net)
	}
}

func TestIterative_PrunedWeightsStayPruned(t *testing.T) {
	for _, algo := range []string{"syncw", "grasp"} {
		for _, dynamic := range []bool{true, false} {
			net, err := nn.NewResNet(8, 1, testClasses, 2, rand.New(rand.NewSource(17)))
			require.NoError(t, err)
			cfg := testConfig(algo)
			cfg.Network = "resnet"
			cfg.ApplyAlgorithm(algo, nil)
			cfg.Dynamic = dynamic
			cfg.TargetRatio = 0.8
			cfg.NumItersPrune = 4

			res, err := pruning.Iterative(net, newSource(t, tensor.Shape{1, 6, 6}), cfg)
			require.NoError(t, err, "%s dynamic=%v", algo, dynamic)
			require.Len(t, res.Rounds, 4)

			prev := res.Masks.Total()
			for i, r := range res.Rounds {
				assert.LessOrEqual(t, r.Kept, prev, "%s dynamic=%v round %d", algo, dynamic, i)
				prev = r.Kept
			}
			assert.Equal(t, prev, res.Masks.Kept())
			assert.GreaterOrEqual(t, res.Masks.Kept(), int(float64(res.Masks.Total())*0.2))
		}
	}
}

func TestReinitLinear(t *testing.T) {
	net := newMLP(t, 18)
	before := weightsOf(net)
	require.NoError(t, pruning.ReinitLinear(net, rand.New(rand.NewSource(19))))
	for i, l := range net.Layers() {
		assert.True(t, before[i].Shape().Equal(l.Weight().Shape()))
		assert.False(t, before[i].Equal(l.Weight().Tensor()), "layer %s kept its weights", l.Name())
	}
}

func TestSynFlow(t *testing.T) {
	net := newMLP(t, 3)
	before := weightsOf(net)
	src := newSource(t, tensor.Shape{4})

	res, err := pruning.SynFlow(net, src, 0.75, 4, pruning.SynFlowOptions{Dynamic: true})
	require.NoError(t, err)
	require.NoError(t, res.Masks.Validate(net))
	assert.GreaterOrEqual(t, res.Masks.Kept(), res.Masks.Total()/4)
	for _, s := range res.Scores {
		assert.GreaterOrEqual(t, s.Min(), 0.0)
	}
	assertUnchanged(t, before, net)
}

func TestEffectiveMasks_NeverAddsParameters(t *testing.T) {
	net := newMLP(t, 4)
	src := newSource(t, tensor.Shape{4})

	full := pruning.Ones(net)
	eff, err := pruning.EffectiveMasks(net, full, src)
	require.NoError(t, err)
	assert.LessOrEqual(t, eff.Kept(), full.Kept())

	// Cutting every input of hidden unit 0 kills its outgoing weights.
	masks := pruning.Ones(net)
	for j := range 4 {
		masks[0].Set(0, 0, j)
	}
	eff, err = pruning.EffectiveMasks(net, masks, src)
	require.NoError(t, err)
	assert.LessOrEqual(t, eff.Kept(), masks.Kept()-testClasses)
	for c := range testClasses {
		assert.Zero(t, eff[1].At(c, 0))
	}
	assert.Equal(t, 1.0, pruning.Coincide(masks, eff))
}

func TestRandomReorder_PreservesDensity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	masks := pruning.Masks{tensor.Zeros(tensor.Shape{10, 10}), tensor.Zeros(tensor.Shape{50})}
	for _, m := range masks {
		d := m.Data()
		for j := range len(d) * 3 / 10 {
			d[j] = 1
		}
	}

	moved := false
	for range 5 {
		out := pruning.RandomReorder(masks, rng)
		for i := range masks {
			assert.Equal(t, masks[i].CountEqual(1), out[i].CountEqual(1))
			if !out[i].Equal(masks[i]) {
				moved = true
			}
		}
	}
	assert.True(t, moved)
}

func TestCoincideAndRatios(t *testing.T) {
	a := pruning.Masks{tensor.New(tensor.Shape{4}, []float64{1, 1, 0, 0})}
	b := pruning.Masks{tensor.New(tensor.Shape{4}, []float64{1, 0, 1, 0})}

	assert.Equal(t, 1.0, pruning.Coincide(a, a))
	assert.Equal(t, 0.5, pruning.Coincide(a, b))
	assert.Zero(t, pruning.Coincide(a, pruning.Masks{tensor.Zeros(tensor.Shape{4})}))
	assert.Equal(t, 0.5, pruning.KeepRatio(a))
	assert.Equal(t, []float64{0.5}, pruning.LayerRatios(a))
}

func TestConnectedScores(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	root := nn.NewSequential(
		nn.NewConv2D("c1", 1, 2, 3, 3, 1, 1, false, rng),
		nn.NewConv2D("c2", 2, 2, 3, 3, 1, 1, false, rng),
		nn.NewConv2D("proj", 2, 2, 1, 1, 1, 0, false, rng),
		nn.NewFlatten(),
		nn.NewLinear("fc", 2*4*4, 2, rng),
	)
	net := nn.MustModel("toy", root)

	masks := pruning.Ones(net)
	assert.Zero(t, pruning.ConnectedScores(net, masks, 1))

	// Filter 0 of c1 is pruned but c2 still reads channel 0.
	for j := range 9 {
		masks[0].Data()[j] = 0
	}
	assert.Equal(t, 1, pruning.ConnectedScores(net, masks, 0))

	// c2 no longer reads channel 1 although filter 1 of c1 survives.
	for o := range 2 {
		for j := range 9 {
			masks[1].Data()[(o*2+1)*9+j] = 0
		}
	}
	assert.Equal(t, 1, pruning.ConnectedScores(net, masks, 0))
	assert.Equal(t, 2, pruning.ConnectedScores(net, masks, 1))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		mode, algo string
		want       pruning.Plan
	}{
		{"dense", "grasp", pruning.Plan{Strategy: pruning.StrategyDense}},
		{"rank", "grasp", pruning.Plan{Strategy: pruning.StrategySingleShot}},
		{"rank/random", "SNIP", pruning.Plan{Strategy: pruning.StrategySingleShot, RandomReorder: true}},
		{"rank/iterative", "gcs", pruning.Plan{Strategy: pruning.StrategyIterative}},
		{"rank/iterative", "synflow", pruning.Plan{Strategy: pruning.StrategySynFlow}},
	}
	for _, tt := range tests {
		got, err := pruning.Select(tt.mode, tt.algo)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.mode, tt.algo)
	}

	got, err := pruning.Select("rank", "magnitude")
	require.NoError(t, err)
	assert.Equal(t, pruning.StrategyDense, got.Strategy)
	assert.NotEmpty(t, got.Fallback)

	got, err = pruning.Select("lottery", "grasp")
	require.NoError(t, err)
	assert.Equal(t, pruning.StrategyDense, got.Strategy)
	assert.NotEmpty(t, got.Fallback)

	_, err = pruning.Select("coin", "grasp")
	assert.ErrorIs(t, err, pruning.ErrUnsupportedMode)
}

func TestPruner_Prune(t *testing.T) {
	var buf bytes.Buffer
	net := newMLP(t, 8)
	before := weightsOf(net)
	cfg := testConfig("snip")
	cfg.PruneMode = "rank/random"

	p := pruning.NewPruner(cfg, pruning.WithLogger(log.New(&buf, "", 0)), pruning.WithRand(rand.New(rand.NewSource(1))))
	res, err := p.Prune(net, newSource(t, tensor.Shape{4}))
	require.NoError(t, err)
	require.NoError(t, res.Masks.Validate(net))
	assert.InDelta(t, 0.5, pruning.KeepRatio(res.Masks), 0.05)
	assert.Contains(t, buf.String(), "rank/random")
	assertUnchanged(t, before, net)

	buf.Reset()
	cfg.PruneMode = "lottery"
	res, err = p.Prune(net, newSource(t, tensor.Shape{4}))
	require.NoError(t, err)
	assert.Equal(t, res.Masks.Total(), res.Masks.Kept())
	assert.Contains(t, buf.String(), "WARNING")

	cfg.PruneMode = "coin"
	_, err = p.Prune(net, newSource(t, tensor.Shape{4}))
	assert.ErrorIs(t, err, pruning.ErrUnsupportedMode)
}

func TestCompare(t *testing.T) {
	net := newMLP(t, 9)
	src := newSource(t, tensor.Shape{4})
	res, err := pruning.SingleShot(net, src, 0.6, testConfig("snip"), pruning.SingleShotOptions{})
	require.NoError(t, err)

	cmp, err := pruning.Compare(net, res.Masks, src)
	require.NoError(t, err)
	assert.InDelta(t, pruning.KeepRatio(res.Masks), cmp.Nominal, 1e-12)
	assert.LessOrEqual(t, cmp.Effective, cmp.Nominal)
	assert.Equal(t, 1.0, cmp.Coincidence)

	info := pruning.MaskInformation(net, res.Masks)
	assert.Equal(t, "mlp", info.Network)
	require.Len(t, info.Layers, 2)
	assert.Equal(t, "fc1", info.Layers[0].Name)
	assert.Equal(t, 24, info.Layers[0].Total)
}

func TestMasks_ValidateAndApply(t *testing.T) {
	net := newMLP(t, 10)
	masks := pruning.Ones(net)
	masks[0].Set(0, 1, 2)
	require.NoError(t, masks.Validate(net))

	clone := net.Clone()
	require.NoError(t, masks.Apply(clone))
	assert.Zero(t, clone.Layers()[0].Weight().Tensor().At(1, 2))

	bad := masks.Clone()
	bad[1].Set(0.5, 0, 0)
	assert.Error(t, bad.Validate(net))
	assert.ErrorIs(t, masks[:1].Validate(net), pruning.ErrShapeMismatch)

	snap := pruning.TakeSnapshot(net)
	restored, err := snap.Masked(masks)
	require.NoError(t, err)
	assert.Zero(t, restored[0].At(1, 2))
	assert.Equal(t, net.Layers()[0].Weight().Tensor().At(0, 0), restored[0].At(0, 0))
}

func TestGradientProducts_PairwiseCount(t *testing.T) {
	net := newMLP(t, 11)
	cfg := testConfig("gcs")
	cfg.NumGroup = 3
	batch, err := data.Fetch(newSource(t, tensor.Shape{4}), testClasses, 2, data.FetchOptions{Grouped: true})
	require.NoError(t, err)

	products, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	assert.Len(t, products, 3) // C(3,2)

	cfg.GradMode = config.GradAggregateDot
	products, err = pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	cfg.NumGroup = 7
	_, err = pruning.GradientProducts(net, batch, cfg)
	assert.ErrorIs(t, err, pruning.ErrEmptyGroup)
}

// TestGradientProducts_GraSPMatchesFiniteDifference checks that the GraSP
// product is the gradient of Σ‖∂loss/∂w‖², using SNIP gradients.
func TestGradientProducts_GraSPMatchesFiniteDifference(t *testing.T) {
	net := newMLP(t, 12)
	batch, err := data.Fetch(newSource(t, tensor.Shape{4}), testClasses, 1, data.FetchOptions{})
	require.NoError(t, err)

	cfg := testConfig("grasp")
	cfg.Temperature = 1
	hg, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	require.Len(t, hg, 1)

	snip := cfg.Clone()
	snip.GradMode = config.GradSNIP
	gradNorm := func() float64 {
		g, err := pruning.GradientProducts(net, batch, snip)
		require.NoError(t, err)
		total := 0.0
		for _, gl := range g[0] {
			total += gl.Dot(gl)
		}
		return total
	}

	const eps = 1e-5
	for l, layer := range net.Layers() {
		w := layer.Weight().Tensor().Data()
		for _, i := range []int{0, len(w) / 2, len(w) - 1} {
			orig := w[i]
			w[i] = orig + eps
			plus := gradNorm()
			w[i] = orig - eps
			minus := gradNorm()
			w[i] = orig
			assert.InDelta(t, (plus-minus)/(2*eps), hg[0][l].Data()[i], 1e-5, "layer %d index %d", l, i)
		}
	}
}

func TestGradientProducts_SNIPMatchesTapeGradient(t *testing.T) {
	net := newMLP(t, 13)
	batch, err := data.Fetch(newSource(t, tensor.Shape{4}), testClasses, 2, data.FetchOptions{})
	require.NoError(t, err)

	cfg := testConfig("snip")
	products, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)

	tp := autodiff.NewTape()
	logits := tp.Scale(net.Forward(nn.NewPass(tp), autodiff.Constant(batch.Inputs)), 1/cfg.Temperature)
	grads, err := tp.Grad(nn.CrossEntropy(tp, logits, batch.Labels), nn.WeightValues(net), autodiff.GradOptions{})
	require.NoError(t, err)
	for l := range grads {
		assert.True(t, grads[l].Data().AllClose(products[0][l], 1e-12))
	}
}

func TestGradientProducts_ConnectionModes(t *testing.T) {
	net, err := nn.NewResNet(8, 1, testClasses, 2, rand.New(rand.NewSource(14)))
	require.NoError(t, err)
	batch, err := data.Fetch(newSource(t, tensor.Shape{1, 6, 6}), testClasses, 1, data.FetchOptions{})
	require.NoError(t, err)

	for _, algo := range []string{"gcs-max", "syncw"} {
		cfg := testConfig("syncw")
		cfg.Network = "resnet"
		cfg.ApplyAlgorithm(algo, nil)
		cfg.NumGroup = 1
		if algo == "syncw" {
			cfg.GradMode = config.GradSynCW
			cfg.Flag = 2
		}

		products, err := pruning.GradientProducts(net, batch, cfg)
		require.NoError(t, err, algo)
		require.Len(t, products, 1)
		require.Len(t, products[0], len(net.Layers()))
		for l, layer := range net.Layers() {
			assert.True(t, products[0][l].Shape().Equal(layer.Weight().Shape()))
			assert.False(t, products[0][l].HasNaN(), "%s layer %s", algo, layer.Name())
		}
	}
}

func TestAggregate(t *testing.T) {
	w := []*tensor.Tensor{tensor.New(tensor.Shape{2}, []float64{2, -1})}
	products := pruning.Products{
		{tensor.New(tensor.Shape{2}, []float64{1, 3})},
		{tensor.New(tensor.Shape{2}, []float64{-2, 1})},
	}

	tests := []struct {
		mode config.ScoreMode
		want []float64
	}{
		{config.ScoreSum, []float64{-2, -4}},
		{config.ScoreAbsSum, []float64{2, 4}},
		{config.ScoreProduct, []float64{1e6 * 2 * 4, 1e6 * 3 * 1}},
		{config.ScoreEuclidean, []float64{1e6 * 4.47213595499958, 1e6 * 3.1622776601683795}},
		{config.ScoreAbs, []float64{2, 4}},
		{config.ScoreSquare, []float64{4, 16}},
	}
	for _, tt := range tests {
		scores, err := pruning.Aggregate(products, w, tt.mode)
		require.NoError(t, err, tt.mode.String())
		assert.InDeltaSlice(t, tt.want, scores[0].Data(), 1e-6, tt.mode.String())
	}

	_, err := pruning.Aggregate(products, w, config.ScoreNone)
	assert.ErrorIs(t, err, pruning.ErrUnsupportedScoreMode)
	_, err = pruning.Aggregate(nil, w, config.ScoreSum)
	assert.ErrorIs(t, err, pruning.ErrNoProducts)
}
