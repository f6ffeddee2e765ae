package nn

import (
	"fmt"
	"math"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
type ReLU struct{}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU { return &ReLU{} }

// Forward applies the activation.
func (r *ReLU) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	return p.Tape.ReLU(x)
}

// Parameters returns nil; ReLU has no parameters.
func (r *ReLU) Parameters() []*Parameter { return nil }

// Clone returns the receiver; ReLU is stateless.
func (r *ReLU) Clone() Module { return r }

// Flatten collapses every dimension after the batch dimension.
type Flatten struct{}

// NewFlatten creates a Flatten module.
func NewFlatten() *Flatten { return &Flatten{} }

// Forward reshapes [N, ...] to [N, prod(...)].
func (f *Flatten) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	return p.Tape.Reshape(x, x.Shape()[0], -1)
}

// Parameters returns nil.
func (f *Flatten) Parameters() []*Parameter { return nil }

// Clone returns the receiver.
func (f *Flatten) Clone() Module { return f }

// GlobalAvgPool averages every spatial position of each channel.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels]
type GlobalAvgPool struct{}

// NewGlobalAvgPool creates a global average pooling module.
func NewGlobalAvgPool() *GlobalAvgPool { return &GlobalAvgPool{} }

// Forward averages over the spatial dimensions.
func (g *GlobalAvgPool) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("GlobalAvgPool: expected 4-D input, got %v", shape))
	}
	rows := shape[0] * shape[1]
	area := shape[2] * shape[3]

	tp := p.Tape
	flat := tp.Reshape(x, rows, area)
	mean := tp.Scale(tp.SumToAxis(flat, 0), 1/float64(area))
	return tp.Reshape(mean, shape[0], shape[1])
}

// Parameters returns nil.
func (g *GlobalAvgPool) Parameters() []*Parameter { return nil }

// Clone returns the receiver.
func (g *GlobalAvgPool) Clone() Module { return g }

// MaxPool2D is a 2D max pooling layer.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - kernelSize) / stride + 1
//	out_width = (width - kernelSize) / stride + 1
//
// The arg-max positions are selected on the forward values and applied as
// a Gather, so the pooled output is piecewise linear in its input.
type MaxPool2D struct {
	kernelSize int
	stride     int
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D(kernelSize, stride int) *MaxPool2D {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	return &MaxPool2D{kernelSize: kernelSize, stride: stride}
}

// Forward applies max pooling.
func (m *MaxPool2D) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4-D input, got %v", shape))
	}
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	outH := (h-m.kernelSize)/m.stride + 1
	outW := (w-m.kernelSize)/m.stride + 1
	if outH < 1 || outW < 1 {
		panic(fmt.Sprintf("maxpool2d: input %dx%d smaller than kernel %d", h, w, m.kernelSize))
	}

	data := x.Data().Data()
	index := make([]int, 0, n*c*outH*outW)
	for plane := 0; plane < n*c; plane++ {
		base := plane * h * w
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				best, bestIdx := math.Inf(-1), -1
				for i := 0; i < m.kernelSize; i++ {
					for j := 0; j < m.kernelSize; j++ {
						idx := base + (oh*m.stride+i)*w + ow*m.stride + j
						if data[idx] > best {
							best, bestIdx = data[idx], idx
						}
					}
				}
				index = append(index, bestIdx)
			}
		}
	}
	return p.Tape.Gather(x, index, tensor.Shape{n, c, outH, outW})
}

// Parameters returns nil.
func (m *MaxPool2D) Parameters() []*Parameter { return nil }

// Clone returns the receiver; MaxPool2D is stateless.
func (m *MaxPool2D) Clone() Module { return m }
