package optim

import (
	"fmt"

	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule with momentum:
//
//	g = gradient + weight_decay * param
//	velocity = momentum * velocity + g
//	param = param - lr * velocity
type SGD struct {
	params      []*nn.Parameter
	lr          float64
	momentum    float64
	weightDecay float64
	velocities  map[*nn.Parameter]*tensor.Tensor
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR          float64 // Learning rate (default: 0.01)
	Momentum    float64 // Momentum factor (default: 0.0, range: [0, 1))
	WeightDecay float64 // L2 penalty (default: 0)
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:      params,
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		velocities:  make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step performs a single optimization step.
// Parameters with no gradient are skipped.
func (s *SGD) Step(grads Gradients) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}
		grad = decayed(param, grad, s.weightDecay)

		if s.momentum == 0 {
			param.Tensor().AddInPlace(grad.Scale(-s.lr))
			continue
		}

		velocity, exists := s.velocities[param]
		if !exists {
			velocity = grad.Clone()
			s.velocities[param] = velocity
		} else {
			velocity.ScaleInPlace(s.momentum)
			velocity.AddInPlace(grad)
		}
		param.Tensor().AddInPlace(velocity.Scale(-s.lr))
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// StateDict returns the velocity buffers keyed "velocity.{param_index}".
func (s *SGD) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i, param := range s.params {
		if velocity, ok := s.velocities[param]; ok {
			stateDict[fmt.Sprintf("velocity.%d", i)] = velocity.Clone()
		}
	}
	return stateDict
}

// LoadStateDict restores velocity buffers produced by StateDict.
func (s *SGD) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	velocities := make(map[*nn.Parameter]*tensor.Tensor)
	for i, param := range s.params {
		velocity, ok := stateDict[fmt.Sprintf("velocity.%d", i)]
		if !ok {
			continue
		}
		if !velocity.Shape().Equal(param.Shape()) {
			return fmt.Errorf("velocity shape mismatch for parameter %d: expected %v, got %v",
				i, param.Shape(), velocity.Shape())
		}
		velocities[param] = velocity.Clone()
	}
	s.velocities = velocities
	return nil
}
