package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownSchedule is returned for an unrecognised learning-rate mode.
var ErrUnknownSchedule = errors.New("optim: unknown learning rate schedule")

// StepGamma is the decay factor of the step schedule.
const StepGamma = 0.9

// Scheduler returns the learning rate for an epoch (0-based).
type Scheduler interface {
	LR(epoch int) float64
}

// Cosine anneals from Base to zero over Epochs.
type Cosine struct {
	Base   float64
	Epochs int
}

// LR implements Scheduler.
func (c Cosine) LR(epoch int) float64 {
	if c.Epochs <= 0 {
		return c.Base
	}
	return c.Base * (1 + math.Cos(math.Pi*float64(epoch)/float64(c.Epochs))) / 2
}

// Step multiplies Base by Gamma every Size epochs.
type Step struct {
	Base  float64
	Size  int
	Gamma float64
}

// LR implements Scheduler.
func (s Step) LR(epoch int) float64 {
	if s.Size <= 0 {
		return s.Base
	}
	return s.Base * math.Pow(s.Gamma, float64(epoch/s.Size))
}

// Preset divides Base by 10 at half of Epochs and by 100 at three quarters.
type Preset struct {
	Base   float64
	Epochs int
}

// LR implements Scheduler.
func (p Preset) LR(epoch int) float64 {
	switch {
	case epoch >= int(float64(p.Epochs)*0.75):
		return p.Base * 0.01
	case epoch >= int(float64(p.Epochs)*0.5):
		return p.Base * 0.1
	default:
		return p.Base
	}
}

// NewScheduler builds the schedule named by mode: "cosine", or any mode
// containing "preset" or "step".
func NewScheduler(mode string, base float64, epochs, stepSize int) (Scheduler, error) {
	switch {
	case mode == "cosine":
		return Cosine{Base: base, Epochs: epochs}, nil
	case strings.Contains(mode, "preset"):
		return Preset{Base: base, Epochs: epochs}, nil
	case strings.Contains(mode, "step"):
		return Step{Base: base, Size: stepSize, Gamma: StepGamma}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchedule, mode)
	}
}
