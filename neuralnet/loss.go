package neuralnet

import "github.com/pkg/errors"

// CostKind selects a cost function at network construction time.
type CostKind int

const (
	SquaredErrorCost CostKind = iota
)

func (k CostKind) String() string {
	switch k {
	case SquaredErrorCost:
		return "squared-error"
	}
	return "unknown"
}

// CostFunction defines the interface for computing the cost of one example and
// its derivative.
type CostFunction interface {
	// Cost returns the cost of the predicted output against the expected output.
	Cost(predicted, expected []float64) float64
	// Derivative returns ∂Cost/∂predicted for a single output unit.
	Derivative(predicted, expected float64) float64
}

// NewCost returns the cost function for kind.
func NewCost(kind CostKind) (CostFunction, error) {
	switch kind {
	case SquaredErrorCost:
		return SquaredError{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "cost %d", int(kind))
}

// SquaredError is half the sum of squared differences.
type SquaredError struct{}

func (SquaredError) Cost(predicted, expected []float64) float64 {
	var sum float64
	for i := range predicted {
		diff := predicted[i] - expected[i]
		sum += diff * diff
	}
	return 0.5 * sum
}

func (SquaredError) Derivative(predicted, expected float64) float64 {
	return predicted - expected
}
