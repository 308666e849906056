package neuralnet

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Params holds the training hyperparameters shared by all layers.
type Params struct {
	LearnRate      float64
	LearnRateDecay float64
	Momentum       float64
	Regularization float64
}

// DefaultParams returns the hyperparameters used for MNIST.
func DefaultParams() Params {
	return Params{
		LearnRate:      0.05,
		LearnRateDecay: 0.075,
		Momentum:       0.9,
		Regularization: 0.1,
	}
}

// Validate rejects non-finite or negative values and a momentum of 1 or more.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"learn rate", p.LearnRate},
		{"learn rate decay", p.LearnRateDecay},
		{"momentum", p.Momentum},
		{"regularization", p.Regularization},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return errors.Wrapf(ErrInvalidParams, "%s = %v", f.name, f.value)
		}
	}
	if p.Momentum >= 1 {
		return errors.Wrapf(ErrInvalidParams, "momentum = %v, must be below 1", p.Momentum)
	}
	return nil
}

// LearnRateAt returns the learning rate for a zero-based epoch:
// LearnRate / (1 + LearnRateDecay*epoch).
func (p Params) LearnRateAt(epoch int) float64 {
	return p.LearnRate / (1 + p.LearnRateDecay*float64(epoch))
}

// Config describes a network to construct.
type Config struct {
	// LayerSizes lists the unit counts from the input to the output, so a network
	// with n sizes has n-1 layers.
	LayerSizes  []int
	Activation  ActivationKind
	Cost        CostKind
	Initializer InitializerKind
	Params      Params
	// InitialWeights optionally overrides the initializer. Entry i holds the
	// weights of layer i indexed out*inputSize + in; a nil entry keeps the
	// initializer's values.
	InitialWeights [][]float64
	// Rand is the random source for weight initialization and shuffling.
	Rand *rand.Rand
}
