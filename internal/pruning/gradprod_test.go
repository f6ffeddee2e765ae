package pruning_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/pruning"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChain returns fc1(2→3) → fc2(3→2) → fc3(2→3) with no activations, so
// the gradient of a summed layer output has a closed form.
func newChain(t *testing.T) *nn.Model {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	net, err := nn.NewModel("chain", nn.NewSequential(
		nn.NewLinear("fc1", 2, 3, rng),
		nn.NewLinear("fc2", 3, 2, rng),
		nn.NewLinear("fc3", 2, 3, rng),
	))
	require.NoError(t, err)
	return net
}

func normalized(x *tensor.Tensor) *tensor.Tensor {
	span := math.Max(x.Max()-x.Min(), 1e-10)
	return x.AddScalar(-x.Mean()).Scale(1 / span)
}

// sumOutputGrad returns ∂(Σ x·Wᵀ·Vᵀ)/∂W for x [N,in], W [out,in] and
// V [next,out]: entry (a, b) is (Σ_r V[r,a]) · (Σ_n x[n,b]).
// A nil V stands for the identity reduction (Σ_n x[n,b] in every row).
func sumOutputGrad(x, w, v *tensor.Tensor) *tensor.Tensor {
	out, in := w.Shape()[0], w.Shape()[1]
	g := tensor.Zeros(tensor.Shape{out, in})
	for a := range out {
		colSum := 1.0
		if v != nil {
			colSum = 0
			for r := range v.Shape()[0] {
				colSum += v.At(r, a)
			}
		}
		for b := range in {
			xs := 0.0
			for n := range x.Shape()[0] {
				xs += x.At(n, b)
			}
			g.Set(colSum*xs, a, b)
		}
	}
	return g
}

func TestGradientProducts_ConnectionValues(t *testing.T) {
	net := newChain(t)
	batch := data.Batch{
		Inputs: tensor.New(tensor.Shape{3, 2}, []float64{0.5, -1, 2, 0.25, -1.5, 1}),
		Labels: []int{0, 1, 2},
	}
	w := weightsOf(net)

	cfg := testConfig("syncw")
	cfg.Network = "mlp"
	cfg.NumGroup = 1
	cfg.Temperature = 1
	cfg.Flag = 2

	snip := cfg.Clone()
	snip.GradMode = config.GradSNIP
	lossGrads, err := pruning.GradientProducts(net, batch, snip)
	require.NoError(t, err)

	y1 := batch.Inputs.MatMul(w[0].Transpose())
	y2 := y1.MatMul(w[1].Transpose())
	sensitivity := []*tensor.Tensor{
		sumOutputGrad(batch.Inputs, w[0], w[1]),
		sumOutputGrad(y1, w[1], w[2]),
		sumOutputGrad(y2, w[2], nil),
	}

	tests := []struct {
		mode  config.GradMode
		scale float64
	}{
		{config.GradConnection, 1},
		{config.GradSynCW, 2},
	}
	for _, tt := range tests {
		c := cfg.Clone()
		c.GradMode = tt.mode
		products, err := pruning.GradientProducts(net, batch, c)
		require.NoError(t, err, tt.mode.String())
		require.Len(t, products, 1)
		for l := range sensitivity {
			want := lossGrads[0][l].Mul(normalized(sensitivity[l])).Scale(tt.scale)
			assert.True(t, want.AllClose(products[0][l], 1e-9), "%s layer %d: want %v got %v", tt.mode, l, want, products[0][l])
		}
	}
}

func TestGradientProducts_ConnectionFlatSensitivity(t *testing.T) {
	net := newChain(t)
	require.NoError(t, net.Layers()[1].Weight().Set(tensor.Ones(tensor.Shape{2, 3})))
	batch := data.Batch{
		Inputs: tensor.New(tensor.Shape{3, 2}, []float64{1, 1, 2, 2, -1, -1}),
		Labels: []int{0, 1, 2},
	}

	cfg := testConfig("syncw")
	cfg.Network = "mlp"
	cfg.GradMode = config.GradSynCW
	cfg.NumGroup = 1

	// ∂Σ fc2/∂W1 is constant here, so the normalised factor is zero.
	products, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	assert.False(t, products[0][0].HasNaN())
	assert.Equal(t, 0, products[0][0].CountNonZero())
	assert.NotZero(t, products[0][1].CountNonZero())
}

// snipObjective evaluates combine over the per-group loss gradients of net.
func snipObjective(t *testing.T, net nn.Network, batch data.Batch, cfg *config.Config, combine func(g pruning.Products) float64) func() float64 {
	t.Helper()
	snip := cfg.Clone()
	snip.GradMode = config.GradSNIP
	return func() float64 {
		g, err := pruning.GradientProducts(net, batch, snip)
		require.NoError(t, err)
		return combine(g)
	}
}

func layerDot(a, b []*tensor.Tensor) float64 {
	total := 0.0
	for l := range a {
		total += a[l].Dot(b[l])
	}
	return total
}

func assertMatchesFiniteDifference(t *testing.T, net nn.Network, want []*tensor.Tensor, f func() float64) {
	t.Helper()
	const eps = 1e-5
	for l, layer := range net.Layers() {
		w := layer.Weight().Tensor().Data()
		for _, i := range []int{0, len(w) / 2, len(w) - 1} {
			orig := w[i]
			w[i] = orig + eps
			plus := f()
			w[i] = orig - eps
			minus := f()
			w[i] = orig
			assert.InDelta(t, (plus-minus)/(2*eps), want[l].Data()[i], 1e-5, "layer %d index %d", l, i)
		}
	}
}

func TestGradientProducts_PairwiseValues(t *testing.T) {
	net := newMLP(t, 15)
	batch, err := data.Fetch(newSource(t, tensor.Shape{4}), testClasses, 2, data.FetchOptions{Grouped: true})
	require.NoError(t, err)

	cfg := testConfig("gcs")
	cfg.NumGroup = 2
	cfg.Temperature = 1
	products, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	require.Len(t, products, 1)

	assertMatchesFiniteDifference(t, net, products[0], snipObjective(t, net, batch, cfg, func(g pruning.Products) float64 {
		return layerDot(g[0], g[1])
	}))
}

func TestGradientProducts_AggregateDotValues(t *testing.T) {
	net := newMLP(t, 16)
	batch, err := data.Fetch(newSource(t, tensor.Shape{4}), testClasses, 2, data.FetchOptions{Grouped: true})
	require.NoError(t, err)

	cfg := testConfig("gcs")
	cfg.GradMode = config.GradAggregateDot
	cfg.NumGroup = 2
	cfg.Temperature = 1
	products, err := pruning.GradientProducts(net, batch, cfg)
	require.NoError(t, err)
	require.Len(t, products, 2)

	for i := range products {
		assertMatchesFiniteDifference(t, net, products[i], snipObjective(t, net, batch, cfg, func(g pruning.Products) float64 {
			agg := make([]*tensor.Tensor, len(g[0]))
			for l := range agg {
				agg[l] = g[0][l].Add(g[1][l])
			}
			return layerDot(agg, g[i])
		}))
	}
}
