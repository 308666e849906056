package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

// ActivationKind selects an activation function at network construction time.
type ActivationKind int

const (
	SigmoidActivation ActivationKind = iota
)

func (k ActivationKind) String() string {
	switch k {
	case SigmoidActivation:
		return "sigmoid"
	}
	return "unknown"
}

// ActivationFunction maps a layer's weighted sums to its activations.
//
// Both methods receive the whole pre-activation vector of the layer and the index
// of the unit to evaluate, so functions that depend on sibling units can be added
// without touching Layer or Network.
type ActivationFunction interface {
	Activate(weightedSums []float64, index int) float64
	Derivative(weightedSums []float64, index int) float64
}

// NewActivation returns the activation function for kind.
func NewActivation(kind ActivationKind) (ActivationFunction, error) {
	switch kind {
	case SigmoidActivation:
		return Sigmoid{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "activation %d", int(kind))
}

type Sigmoid struct{}

func (s Sigmoid) Activate(weightedSums []float64, index int) float64 {
	return 1 / (1 + math.Exp(-weightedSums[index]))
}

// Derivative is expressed through the activated value: a * (1 - a).
func (s Sigmoid) Derivative(weightedSums []float64, index int) float64 {
	a := s.Activate(weightedSums, index)
	return a * (1 - a)
}
