package nn

import (
	"fmt"
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// The convolution is lowered to im2col (a Gather), a matrix multiply and a
// channel permutation (another Gather). Every step is differentiable to any
// order on the tape.
type Conv2D struct {
	name        string
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int
	role        Role

	weight *Parameter // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter // [out_channels] or nil

	plans map[[3]int]*convPlan // keyed by input [batch, height, width]
}

type convPlan struct {
	outH, outW int
	im2col     []int
	permute    []int
}

// NewConv2D creates a new 2D convolutional layer with Xavier initialization.
//
// Parameters:
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (number of filters)
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding to apply to input (commonly 0, 1, 2)
//   - useBias: Whether to include bias term
func NewConv2D(
	name string,
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	rng *rand.Rand,
) *Conv2D {
	if stride < 1 {
		panic(fmt.Sprintf("Conv2D %s: stride must be >= 1, got %d", name, stride))
	}
	fanIn := inChannels * kernelH * kernelW
	fanOut := outChannels * kernelH * kernelW
	shape := tensor.Shape{outChannels, inChannels, kernelH, kernelW}

	c := &Conv2D{
		name:        name,
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  [2]int{kernelH, kernelW},
		stride:      stride,
		padding:     padding,
		weight:      NewParameter(name+".weight", tensor.XavierUniform(shape, fanIn, fanOut, rng)),
	}
	if useBias {
		c.bias = NewParameter(name+".bias", tensor.Zeros(tensor.Shape{outChannels}))
	}
	return c
}

// AsShortcut marks the layer as a projection on a residual skip connection.
func (c *Conv2D) AsShortcut() *Conv2D {
	c.role = RoleShortcut
	return c
}

// Forward applies the convolution and records the output.
func (c *Conv2D) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	shape := x.Shape()
	if len(shape) != 4 || shape[1] != c.inChannels {
		panic(fmt.Sprintf("Conv2D %s: expected input [N, %d, H, W], got %v", c.name, c.inChannels, shape))
	}
	n := shape[0]
	plan := c.plan(n, shape[2], shape[3])

	tp := p.Tape
	kk := c.inChannels * c.kernelSize[0] * c.kernelSize[1]
	rows := n * plan.outH * plan.outW

	cols := tp.Gather(x, plan.im2col, tensor.Shape{rows, kk})
	w := tp.Reshape(c.weight.Value(), c.outChannels, kk)
	y := tp.MatMul(cols, tp.Transpose(w)) // [rows, out_channels]

	outShape := tensor.Shape{n, c.outChannels, plan.outH, plan.outW}
	out := tp.Gather(y, plan.permute, outShape)
	if c.bias != nil {
		out = tp.Add(out, tp.ExpandAxis(c.bias.Value(), outShape, 1))
	}
	p.capture(out)
	return out
}

// plan returns the cached gather indices for an input geometry.
func (c *Conv2D) plan(n, h, w int) *convPlan {
	key := [3]int{n, h, w}
	if pl, ok := c.plans[key]; ok {
		return pl
	}

	kh, kw := c.kernelSize[0], c.kernelSize[1]
	outH := (h+2*c.padding-kh)/c.stride + 1
	outW := (w+2*c.padding-kw)/c.stride + 1
	if outH < 1 || outW < 1 {
		panic(fmt.Sprintf("Conv2D %s: input %dx%d too small for kernel %dx%d", c.name, h, w, kh, kw))
	}

	kk := c.inChannels * kh * kw
	im2col := make([]int, 0, n*outH*outW*kk)
	for b := 0; b < n; b++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				for ci := 0; ci < c.inChannels; ci++ {
					for i := 0; i < kh; i++ {
						ih := oh*c.stride - c.padding + i
						for j := 0; j < kw; j++ {
							iw := ow*c.stride - c.padding + j
							if ih < 0 || ih >= h || iw < 0 || iw >= w {
								im2col = append(im2col, -1)
								continue
							}
							im2col = append(im2col, ((b*c.inChannels+ci)*h+ih)*w+iw)
						}
					}
				}
			}
		}
	}

	permute := make([]int, 0, n*c.outChannels*outH*outW)
	for b := 0; b < n; b++ {
		for o := 0; o < c.outChannels; o++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					permute = append(permute, ((b*outH+oh)*outW+ow)*c.outChannels+o)
				}
			}
		}
	}

	pl := &convPlan{outH: outH, outW: outW, im2col: im2col, permute: permute}
	if c.plans == nil {
		c.plans = make(map[[3]int]*convPlan)
	}
	c.plans[key] = pl
	return pl
}

// Parameters returns the weight and, if present, the bias.
func (c *Conv2D) Parameters() []*Parameter {
	if c.bias == nil {
		return []*Parameter{c.weight}
	}
	return []*Parameter{c.weight, c.bias}
}

// Clone returns a deep copy of the layer.
func (c *Conv2D) Clone() Module {
	cp := *c
	cp.weight = c.weight.Clone()
	if c.bias != nil {
		cp.bias = c.bias.Clone()
	}
	cp.plans = nil
	return &cp
}

// Name returns the layer name.
func (c *Conv2D) Name() string { return c.name }

// Weight returns the kernel parameter.
func (c *Conv2D) Weight() *Parameter { return c.weight }

// Bias returns the bias parameter (nil when the layer has none).
func (c *Conv2D) Bias() *Parameter { return c.bias }

// Role returns the topological role of the layer.
func (c *Conv2D) Role() Role { return c.role }

// Padding returns the zero padding.
func (c *Conv2D) Padding() int { return c.padding }

// Stride returns the stride.
func (c *Conv2D) Stride() int { return c.stride }

// InChannels returns the number of input channels.
func (c *Conv2D) InChannels() int { return c.inChannels }

// OutChannels returns the number of output channels.
func (c *Conv2D) OutChannels() int { return c.outChannels }

// KernelSize returns [kernel_h, kernel_w].
func (c *Conv2D) KernelSize() [2]int { return c.kernelSize }
