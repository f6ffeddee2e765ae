package nn

import (
	"fmt"
	"math/rand"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
)

// BasicBlock is the two-convolution residual block of CIFAR ResNets:
//
//	out = relu(conv2(relu(conv1(x))) + shortcut(x))
//
// The shortcut is the identity unless the block changes resolution or
// width, in which case it is a strided 1x1 convolution with RoleShortcut.
type BasicBlock struct {
	conv1    *Conv2D
	conv2    *Conv2D
	shortcut *Conv2D // nil for identity
}

// NewBasicBlock creates a residual block named prefix.
func NewBasicBlock(prefix string, inPlanes, planes, stride int, rng *rand.Rand) *BasicBlock {
	b := &BasicBlock{
		conv1: NewConv2D(prefix+".conv1", inPlanes, planes, 3, 3, stride, 1, false, rng),
		conv2: NewConv2D(prefix+".conv2", planes, planes, 3, 3, 1, 1, false, rng),
	}
	if stride != 1 || inPlanes != planes {
		b.shortcut = NewConv2D(prefix+".shortcut", inPlanes, planes, 1, 1, stride, 0, false, rng).AsShortcut()
	}
	return b
}

// Forward evaluates the main path first, then the shortcut, so captures
// follow the Children order.
func (b *BasicBlock) Forward(p *Pass, x *autodiff.Value) *autodiff.Value {
	tp := p.Tape
	out := tp.ReLU(b.conv1.Forward(p, x))
	out = b.conv2.Forward(p, out)

	skip := x
	if b.shortcut != nil {
		skip = b.shortcut.Forward(p, x)
	}
	if !out.Shape().Equal(skip.Shape()) {
		panic(fmt.Sprintf("BasicBlock: main %v and shortcut %v shapes differ", out.Shape(), skip.Shape()))
	}
	return tp.ReLU(tp.Add(out, skip))
}

// Children returns conv1, conv2 and, if present, the shortcut projection.
func (b *BasicBlock) Children() []Module {
	if b.shortcut == nil {
		return []Module{b.conv1, b.conv2}
	}
	return []Module{b.conv1, b.conv2, b.shortcut}
}

// Parameters returns the parameters of every convolution.
func (b *BasicBlock) Parameters() []*Parameter {
	var params []*Parameter
	for _, c := range b.Children() {
		params = append(params, c.Parameters()...)
	}
	return params
}

// Clone deep-copies the block.
func (b *BasicBlock) Clone() Module {
	c := &BasicBlock{
		conv1: b.conv1.Clone().(*Conv2D),
		conv2: b.conv2.Clone().(*Conv2D),
	}
	if b.shortcut != nil {
		c.shortcut = b.shortcut.Clone().(*Conv2D)
	}
	return c
}
