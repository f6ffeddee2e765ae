package nn

import (
	"fmt"
	"math/rand"
	"strings"
)

// Architecture describes a network to build.
type Architecture struct {
	Network    string // "mlp", "lenet5", "vgg" or "resnet"
	Depth      int    // VGG: 11/13/16/19, ResNet: 6n+2
	Width      int    // base channel count (VGG, ResNet); hidden units (MLP)
	InChannels int
	InputSize  int // square spatial size of the input
	Classes    int
}

// Build constructs the described network.
func Build(a Architecture, rng *rand.Rand) (*Model, error) {
	switch strings.ToLower(a.Network) {
	case "mlp":
		width := a.Width
		if width <= 0 {
			width = 100
		}
		return NewMLP(a.InChannels*a.InputSize*a.InputSize, []int{width, width}, a.Classes, rng)
	case "lenet5", "lenet":
		return NewLeNet5(a.InChannels, a.InputSize, a.Classes, rng)
	case "vgg":
		return NewVGG(a.Depth, a.InChannels, a.Classes, a.Width, rng)
	case "resnet":
		return NewResNet(a.Depth, a.InChannels, a.Classes, a.Width, rng)
	default:
		return nil, fmt.Errorf("nn: unknown network %q", a.Network)
	}
}

// NewMLP builds Flatten -> (Linear -> ReLU)* -> Linear.
func NewMLP(inFeatures int, hidden []int, classes int, rng *rand.Rand) (*Model, error) {
	modules := []Module{NewFlatten()}
	in := inFeatures
	for i, h := range hidden {
		modules = append(modules, NewLinear(fmt.Sprintf("fc%d", i+1), in, h, rng), NewReLU())
		in = h
	}
	modules = append(modules, NewLinear(fmt.Sprintf("fc%d", len(hidden)+1), in, classes, rng))
	return NewModel("mlp", NewSequential(modules...))
}

// NewLeNet5 builds the classic LeNet-5 (28x28 input gives a 16x4x4 feature map).
func NewLeNet5(inChannels, inputSize, classes int, rng *rand.Rand) (*Model, error) {
	spatial := ((inputSize-4)/2 - 4) / 2
	if spatial < 1 {
		return nil, fmt.Errorf("nn: input size %d too small for LeNet-5", inputSize)
	}
	root := NewSequential(
		NewConv2D("conv1", inChannels, 6, 5, 5, 1, 0, true, rng),
		NewReLU(),
		NewMaxPool2D(2, 2),
		NewConv2D("conv2", 6, 16, 5, 5, 1, 0, true, rng),
		NewReLU(),
		NewMaxPool2D(2, 2),
		NewFlatten(),
		NewLinear("fc1", 16*spatial*spatial, 120, rng),
		NewReLU(),
		NewLinear("fc2", 120, 84, rng),
		NewReLU(),
		NewLinear("fc3", 84, classes, rng),
	)
	return NewModel("lenet5", root)
}

// vggConfigs lists channel multipliers of the base width; 0 is a 2x2 max pool.
var vggConfigs = map[int][]int{
	11: {1, 0, 2, 0, 4, 4, 0, 8, 8, 0, 8, 8, 0},
	13: {1, 1, 0, 2, 2, 0, 4, 4, 0, 8, 8, 0, 8, 8, 0},
	16: {1, 1, 0, 2, 2, 0, 4, 4, 4, 0, 8, 8, 8, 0, 8, 8, 8, 0},
	19: {1, 1, 0, 2, 2, 0, 4, 4, 4, 4, 0, 8, 8, 8, 8, 0, 8, 8, 8, 8, 0},
}

// NewVGG builds a CIFAR-style VGG: 3x3 convolutions with padding 1, max
// pools, global average pooling and a linear classifier. width is the
// channel count of the first stage (64 in the standard network).
func NewVGG(depth, inChannels, classes, width int, rng *rand.Rand) (*Model, error) {
	cfg, ok := vggConfigs[depth]
	if !ok {
		return nil, fmt.Errorf("nn: unsupported VGG depth %d", depth)
	}
	if width <= 0 {
		width = 64
	}

	var modules []Module
	in := inChannels
	conv := 0
	for _, mult := range cfg {
		if mult == 0 {
			modules = append(modules, NewMaxPool2D(2, 2))
			continue
		}
		out := mult * width
		conv++
		modules = append(modules,
			NewConv2D(fmt.Sprintf("features.conv%d", conv), in, out, 3, 3, 1, 1, true, rng),
			NewReLU(),
		)
		in = out
	}
	modules = append(modules, NewGlobalAvgPool(), NewLinear("classifier", in, classes, rng))
	return NewModel(fmt.Sprintf("vgg%d", depth), NewSequential(modules...))
}

// NewResNet builds a CIFAR ResNet of depth 6n+2: a 3x3 stem, three stages
// of n BasicBlocks with widths w, 2w, 4w (stages 2 and 3 downsample), global
// average pooling and a linear classifier. width defaults to 16.
func NewResNet(depth, inChannels, classes, width int, rng *rand.Rand) (*Model, error) {
	if depth < 8 || (depth-2)%6 != 0 {
		return nil, fmt.Errorf("nn: ResNet depth must be 6n+2, got %d", depth)
	}
	if width <= 0 {
		width = 16
	}
	n := (depth - 2) / 6

	modules := []Module{
		NewConv2D("conv1", inChannels, width, 3, 3, 1, 1, false, rng),
		NewReLU(),
	}
	in := width
	for stage := range 3 {
		planes := width << stage
		for b := range n {
			stride := 1
			if stage > 0 && b == 0 {
				stride = 2
			}
			prefix := fmt.Sprintf("layer%d.%d", stage+1, b)
			modules = append(modules, NewBasicBlock(prefix, in, planes, stride, rng))
			in = planes
		}
	}
	modules = append(modules, NewGlobalAvgPool(), NewLinear("fc", in, classes, rng))
	return NewModel(fmt.Sprintf("resnet%d", depth), NewSequential(modules...))
}
