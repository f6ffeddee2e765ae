package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarVar(v float64) *autodiff.Value {
	return autodiff.Variable(tensor.Full(tensor.Shape{1}, v))
}

// TestGrad_SecondOrder checks d/dx and d²/dx² of x³.
func TestGrad_SecondOrder(t *testing.T) {
	tp := autodiff.NewTape()
	x := scalarVar(3)

	y := tp.Mul(tp.Mul(x, x), x)
	g, err := tp.Grad(tp.Sum(y), []*autodiff.Value{x}, autodiff.GradOptions{CreateGraph: true})
	require.NoError(t, err)
	assert.InDelta(t, 27.0, g[0].Item(), 1e-12)
	assert.True(t, g[0].RequiresGrad())

	h, err := tp.Grad(tp.Sum(g[0]), []*autodiff.Value{x}, autodiff.GradOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, h[0].Item(), 1e-12)
	assert.False(t, h[0].RequiresGrad())
}

// TestGrad_WithoutCreateGraphIsDetached checks that first-order results are constants.
func TestGrad_WithoutCreateGraphIsDetached(t *testing.T) {
	tp := autodiff.NewTape()
	x := scalarVar(2)

	g, err := tp.Grad(tp.Sum(tp.Square(x)), []*autodiff.Value{x}, autodiff.GradOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, g[0].Item(), 1e-12)
	assert.False(t, g[0].RequiresGrad())
	assert.True(t, tp.IsRecording(), "recording state must be restored")
}

func TestGrad_Errors(t *testing.T) {
	tp := autodiff.NewTape()
	x := autodiff.Variable(tensor.Ones(tensor.Shape{3}))
	unused := scalarVar(1)

	_, err := tp.Grad(tp.Scale(x, 2), []*autodiff.Value{x}, autodiff.GradOptions{})
	assert.ErrorIs(t, err, autodiff.ErrNotScalar)

	_, err = tp.Grad(tp.Sum(x), []*autodiff.Value{unused}, autodiff.GradOptions{})
	assert.ErrorIs(t, err, autodiff.ErrUnusedInput)

	g, err := tp.Grad(tp.Sum(x), []*autodiff.Value{x, unused}, autodiff.GradOptions{AllowUnused: true})
	require.NoError(t, err)
	assert.NotNil(t, g[0])
	assert.Nil(t, g[1])
}

func TestNoGrad(t *testing.T) {
	tp := autodiff.NewTape()
	x := scalarVar(1)

	var y *autodiff.Value
	tp.NoGrad(func() { y = tp.Square(x) })
	assert.False(t, y.RequiresGrad())
	assert.True(t, y.IsLeaf())
	assert.True(t, tp.IsRecording())
}

// numericalGradient computes d f / d x[i] by central differences.
func numericalGradient(f func(*tensor.Tensor) float64, x *tensor.Tensor, eps float64) *tensor.Tensor {
	grad := tensor.ZerosLike(x)
	data := x.Data()
	for i := range data {
		orig := data[i]
		data[i] = orig + eps
		plus := f(x)
		data[i] = orig - eps
		minus := f(x)
		data[i] = orig
		grad.Data()[i] = (plus - minus) / (2 * eps)
	}
	return grad
}

// TestGrad_NumericalComposite checks every op against finite differences.
func TestGrad_NumericalComposite(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	xData := tensor.Randn(tensor.Shape{3, 4}, rng)
	wData := tensor.Randn(tensor.Shape{4, 2}, rng)
	bData := tensor.Randn(tensor.Shape{2}, rng)
	index := []int{0, 5, -1, 11, 3, 3}

	build := func(tp *autodiff.Tape, x, w, b *autodiff.Value) *autodiff.Value {
		h := tp.MatMul(x, w)                                     // [3,2]
		h = tp.Add(h, tp.ExpandAxis(b, h.Shape(), 1))            // bias
		h = tp.ReLU(h)                                           // [3,2]
		lse := tp.Log(tp.SumToAxis(tp.Exp(h), 0))                // [3]
		r := tp.Reshape(tp.Transpose(h), -1)                     // [6]
		gx := tp.Gather(x, index, tensor.Shape{6})               // [6]
		mix := tp.Mul(r, tp.Reciprocal(tp.Add(tp.Square(gx), autodiff.Constant(tensor.Ones(tensor.Shape{6})))))
		return tp.Add(tp.Sum(lse), tp.Scale(tp.Sum(mix), 0.5))
	}

	tp := autodiff.NewTape()
	x, w, b := autodiff.Variable(xData), autodiff.Variable(wData), autodiff.Variable(bData)
	out := build(tp, x, w, b)
	grads, err := tp.Grad(out, []*autodiff.Value{x, w, b}, autodiff.GradOptions{})
	require.NoError(t, err)

	eval := func() float64 {
		tp := autodiff.NewTape()
		return build(tp, autodiff.Constant(xData), autodiff.Constant(wData), autodiff.Constant(bData)).Item()
	}
	for i, data := range []*tensor.Tensor{xData, wData, bData} {
		num := numericalGradient(func(*tensor.Tensor) float64 { return eval() }, data, 1e-6)
		assert.True(t, grads[i].Data().AllClose(num, 1e-4), "input %d: autodiff %v numerical %v", i, grads[i].Data(), num)
	}
}

// TestGrad_GradientNormGradient checks ∂‖∇f‖²/∂w = 2·A·A·w for f = ½ wᵀAw, A symmetric.
func TestGrad_GradientNormGradient(t *testing.T) {
	aData, _ := tensor.FromSlice([]float64{2, 1, 0, 1, 3, 1, 0, 1, 4}, tensor.Shape{3, 3})
	wData, _ := tensor.FromSlice([]float64{1, -1, 2}, tensor.Shape{3, 1})

	tp := autodiff.NewTape()
	a := autodiff.Constant(aData)
	w := autodiff.Variable(wData)

	f := tp.Scale(tp.Sum(tp.Mul(w, tp.MatMul(a, w))), 0.5)
	g, err := tp.Grad(f, []*autodiff.Value{w}, autodiff.GradOptions{CreateGraph: true})
	require.NoError(t, err)

	aw := aData.MatMul(wData)
	assert.True(t, g[0].Data().AllClose(aw, 1e-12))

	hg, err := tp.Grad(tp.Sum(tp.Square(g[0])), []*autodiff.Value{w}, autodiff.GradOptions{})
	require.NoError(t, err)

	expected := aData.MatMul(aw).Scale(2)
	assert.True(t, hg[0].Data().AllClose(expected, 1e-10), "got %v want %v", hg[0].Data(), expected)
}

// TestGrad_CrossGroupDot checks ∂(g1·g2)/∂w for two quadratic objectives.
func TestGrad_CrossGroupDot(t *testing.T) {
	wData, _ := tensor.FromSlice([]float64{0.5, -2}, tensor.Shape{2})
	c1, _ := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
	c2, _ := tensor.FromSlice([]float64{3, -1}, tensor.Shape{2})

	tp := autodiff.NewTape()
	w := autodiff.Variable(wData)

	// f_k = Σ c_k w³/3, g_k = c_k w², d(g1·g2)/dw = 4 c1 c2 w³
	cube := tp.Mul(tp.Square(w), w)
	f1 := tp.Scale(tp.Dot(autodiff.Constant(c1), cube), 1.0/3)
	f2 := tp.Scale(tp.Dot(autodiff.Constant(c2), cube), 1.0/3)
	g1, err := tp.Grad(f1, []*autodiff.Value{w}, autodiff.GradOptions{CreateGraph: true})
	require.NoError(t, err)
	g2, err := tp.Grad(f2, []*autodiff.Value{w}, autodiff.GradOptions{CreateGraph: true})
	require.NoError(t, err)

	h, err := tp.Grad(tp.Dot(g1[0], g2[0]), []*autodiff.Value{w}, autodiff.GradOptions{})
	require.NoError(t, err)

	for i, v := range wData.Data() {
		want := 4 * c1.Data()[i] * c2.Data()[i] * math.Pow(v, 3)
		assert.InDelta(t, want, h[0].Data().Data()[i], 1e-10)
	}
}
