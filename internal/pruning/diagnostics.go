package pruning

import (
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
)

// ConnectedScores counts channel disconnections between consecutive padded
// main-path convolutions. For each such convolution the input-channel
// usage (Σ|mask| over output channels and kernel) is compared with the
// output-filter usage of the previous one: an input channel that is used
// although the filter feeding it was pruned away counts one. With mode 1,
// a surviving filter whose channel is unused downstream also counts one.
// Shortcut projections and unpadded convolutions are skipped.
func ConnectedScores(net nn.Network, masks Masks, mode int) int {
	score := 0
	var lastFilter []float64
	for i, l := range net.Layers() {
		conv, ok := l.(*nn.Conv2D)
		if !ok || conv.Padding() == 0 || conv.Role() == nn.RoleShortcut || i >= len(masks) {
			continue
		}
		shape := masks[i].Shape()
		out, in := shape[0], shape[1]
		area := shape[2] * shape[3]
		m := masks[i].Data()

		channel := make([]float64, in)
		filter := make([]float64, out)
		for o := range out {
			for c := range in {
				s := 0.0
				for _, v := range m[(o*in+c)*area : (o*in+c+1)*area] {
					if v < 0 {
						v = -v
					}
					s += v
				}
				channel[c] += s
				filter[o] += s
			}
		}

		if lastFilter != nil {
			for c := range min(len(channel), len(lastFilter)) {
				if lastFilter[c] == 0 && channel[c] != 0 {
					score++
				}
				if mode == 1 && lastFilter[c] != 0 && channel[c] == 0 {
					score++
				}
			}
		}
		lastFilter = filter
	}
	return score
}

// Coincide returns the fraction of b's kept entries that a also keeps.
// It is 1 for Coincide(m, m) and 0 when b keeps nothing.
func Coincide(a, b Masks) float64 {
	both, kept := 0, 0
	for i := range b {
		bd := b[i].Data()
		for j, v := range bd {
			if v != 1 {
				continue
			}
			kept++
			if i < len(a) && a[i].Data()[j] == 1 {
				both++
			}
		}
	}
	if kept == 0 {
		return 0
	}
	return float64(both) / float64(kept)
}

// KeepRatio returns the global fraction of kept entries.
func KeepRatio(masks Masks) float64 {
	total := masks.Total()
	if total == 0 {
		return 0
	}
	return float64(masks.Kept()) / float64(total)
}

// LayerRatios returns the kept fraction of every layer.
func LayerRatios(masks Masks) []float64 {
	ratios := make([]float64, len(masks))
	for i, m := range masks {
		if n := m.NumElements(); n > 0 {
			ratios[i] = float64(m.CountEqual(1)) / float64(n)
		}
	}
	return ratios
}

// LayerInfo describes the mask of one prunable layer.
type LayerInfo struct {
	Index int
	Name  string
	Role  nn.Role
	Kept  int
	Total int
}

// Ratio returns the kept fraction.
func (l LayerInfo) Ratio() float64 {
	if l.Total == 0 {
		return 0
	}
	return float64(l.Kept) / float64(l.Total)
}

// Information summarises masks per layer.
type Information struct {
	Network string
	Overall float64
	Layers  []LayerInfo
}

// MaskInformation returns the per-layer and overall kept fractions.
func MaskInformation(net nn.Network, masks Masks) Information {
	info := Information{Overall: KeepRatio(masks)}
	if named, ok := net.(interface{ Name() string }); ok {
		info.Network = named.Name()
	}
	for i, l := range net.Layers() {
		if i >= len(masks) {
			break
		}
		info.Layers = append(info.Layers, LayerInfo{
			Index: i,
			Name:  l.Name(),
			Role:  l.Role(),
			Kept:  masks[i].CountEqual(1),
			Total: masks[i].NumElements(),
		})
	}
	return info
}

// Comparison contrasts nominal and effective sparsity.
type Comparison struct {
	Nominal        float64 // kept fraction of the masks
	Effective      float64 // kept fraction after removing flow-dead weights
	EffectiveMasks Masks
	Coincidence    float64 // Coincide(masks, effective)
}

// Compare computes the effective masks of masks and both kept fractions.
func Compare(net nn.Network, masks Masks, src data.Source) (Comparison, error) {
	eff, err := EffectiveMasks(net, masks, src)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Nominal:        KeepRatio(masks),
		Effective:      KeepRatio(eff),
		EffectiveMasks: eff,
		Coincidence:    Coincide(masks, eff),
	}, nil
}
