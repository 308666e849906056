package neuralnet

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is one fully connected transformation followed by its activation.
//
// Weights are stored flat, row-major by output unit: the weight connecting input
// unit in to output unit out lives at out*inputSize + in. The same slice backs a
// outputSize × inputSize mat.Dense used for the matrix products.
type Layer struct {
	inputSize  int
	outputSize int

	weights        []float64
	biases         []float64
	weightGradient []float64
	biasGradient   []float64
	weightVelocity []float64
	biasVelocity   []float64

	w     *mat.Dense // view over weights
	wGrad *mat.Dense // view over weightGradient

	activation ActivationFunction
	cost       CostFunction

	// guards weightGradient and biasGradient during accumulation
	mu sync.Mutex
}

// NewLayer allocates a layer and fills its weights from initializer. Biases start at zero.
func NewLayer(inputSize, outputSize int, initializer Initializer, activation ActivationFunction, cost CostFunction) (*Layer, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "layer %dx%d", inputSize, outputSize)
	}
	if initializer == nil || activation == nil || cost == nil {
		return nil, errors.New("layer needs an initializer, an activation and a cost function")
	}

	n := inputSize * outputSize
	l := &Layer{
		inputSize:      inputSize,
		outputSize:     outputSize,
		weights:        make([]float64, n),
		biases:         make([]float64, outputSize),
		weightGradient: make([]float64, n),
		biasGradient:   make([]float64, outputSize),
		weightVelocity: make([]float64, n),
		biasVelocity:   make([]float64, outputSize),
		activation:     activation,
		cost:           cost,
	}
	for in := 0; in < inputSize; in++ {
		for out := 0; out < outputSize; out++ {
			l.weights[l.index(in, out)] = initializer.InitialWeight(inputSize, outputSize)
		}
	}
	l.w = mat.NewDense(outputSize, inputSize, l.weights)
	l.wGrad = mat.NewDense(outputSize, inputSize, l.weightGradient)

	return l, nil
}

// setWeights replaces the initializer's weights with caller supplied values laid
// out as out*inputSize + in.
func (l *Layer) setWeights(weights []float64) error {
	if len(weights) != len(l.weights) {
		return errors.Wrapf(ErrShapeMismatch, "%d initial weights for a %dx%d layer", len(weights), l.inputSize, l.outputSize)
	}
	copy(l.weights, weights)
	return nil
}

func (l *Layer) index(in, out int) int {
	return out*l.inputSize + in
}

func (l *Layer) InputSize() int  { return l.inputSize }
func (l *Layer) OutputSize() int { return l.outputSize }

// Weight returns the weight of the connection from input unit in to output unit out.
func (l *Layer) Weight(in, out int) float64 {
	return l.weights[l.index(in, out)]
}

// Bias returns the bias of output unit out.
func (l *Layer) Bias(out int) float64 {
	return l.biases[out]
}

// WeightGradient returns the gradient accumulated so far for the connection from in to out.
func (l *Layer) WeightGradient(in, out int) float64 {
	return l.weightGradient[l.index(in, out)]
}

// BiasGradient returns the gradient accumulated so far for the bias of out.
func (l *Layer) BiasGradient(out int) float64 {
	return l.biasGradient[out]
}

func (l *Layer) checkInputLength(input []float64) {
	if len(input) != l.inputSize {
		panic(fmt.Sprintf("Layer.Forward: expected input of length %d, got %d", l.inputSize, len(input)))
	}
}

func (l *Layer) weightedSums(input, dst []float64) {
	l.checkInputLength(input)
	sums := mat.NewVecDense(l.outputSize, dst)
	sums.MulVec(l.w, mat.NewVecDense(l.inputSize, input))
	floats.Add(dst, l.biases)
}

func (l *Layer) activate(weightedSums, dst []float64) {
	for i := range dst {
		dst[i] = l.activation.Activate(weightedSums, i)
	}
}

// Forward computes the layer's activations for input. It does not modify the layer.
func (l *Layer) Forward(input []float64) []float64 {
	sums := make([]float64, l.outputSize)
	l.weightedSums(input, sums)
	output := make([]float64, l.outputSize)
	l.activate(sums, output)
	return output
}

// ForwardWithScratch is Forward that records the input, weighted sums and
// activations into s for a following backward pass. It returns s.Activations.
func (l *Layer) ForwardWithScratch(input []float64, s *LayerScratch) []float64 {
	if !s.fits(l) {
		panic(fmt.Sprintf("Layer.ForwardWithScratch: scratch does not fit a %dx%d layer", l.inputSize, l.outputSize))
	}
	l.checkInputLength(input)
	copy(s.Inputs, input)
	l.weightedSums(s.Inputs, s.WeightedSums)
	l.activate(s.WeightedSums, s.Activations)
	s.stage = stageForward
	return s.Activations
}

// ComputeOutputNodeValues sets the error signal of an output layer from the
// expected output: cost'(a_i, y_i) * activation'(z, i).
func (l *Layer) ComputeOutputNodeValues(s *LayerScratch, expected []float64) error {
	if !s.fits(l) {
		return errors.Wrapf(ErrShapeMismatch, "scratch does not fit a %dx%d layer", l.inputSize, l.outputSize)
	}
	if s.stage < stageForward {
		return errors.Wrap(ErrStateMismatch, "output node values before forward pass")
	}
	if len(expected) != l.outputSize {
		return errors.Wrapf(ErrShapeMismatch, "expected output has length %d, layer has %d outputs", len(expected), l.outputSize)
	}
	for i := range s.NodeValues {
		costDerivative := l.cost.Derivative(s.Activations[i], expected[i])
		activationDerivative := l.activation.Derivative(s.WeightedSums, i)
		s.NodeValues[i] = costDerivative * activationDerivative
	}
	s.stage = stageNodeValues
	return nil
}

// ComputeHiddenNodeValues propagates the error signal of next back onto this layer:
// (Σ_j next.Weight(i, j) * nextNodeValues[j]) * activation'(z, i).
func (l *Layer) ComputeHiddenNodeValues(s *LayerScratch, next *Layer, nextNodeValues []float64) error {
	if !s.fits(l) {
		return errors.Wrapf(ErrShapeMismatch, "scratch does not fit a %dx%d layer", l.inputSize, l.outputSize)
	}
	if s.stage < stageForward {
		return errors.Wrap(ErrStateMismatch, "hidden node values before forward pass")
	}
	if next.inputSize != l.outputSize || len(nextNodeValues) != next.outputSize {
		return errors.Wrapf(ErrShapeMismatch, "next layer %dx%d with %d node values after a layer with %d outputs",
			next.inputSize, next.outputSize, len(nextNodeValues), l.outputSize)
	}
	// next.w is outputSize(next) × inputSize(next); its transpose maps next's node
	// values onto this layer's units.
	propagated := mat.NewVecDense(l.outputSize, s.NodeValues)
	propagated.MulVec(next.w.T(), mat.NewVecDense(next.outputSize, nextNodeValues))
	for i := range s.NodeValues {
		s.NodeValues[i] *= l.activation.Derivative(s.WeightedSums, i)
	}
	s.stage = stageNodeValues
	return nil
}

// AccumulateGradients adds this example's contribution to the layer gradients.
// Gradients keep accumulating until ApplyGradient. Safe for concurrent callers
// with distinct scratch buffers.
func (l *Layer) AccumulateGradients(s *LayerScratch) error {
	if !s.fits(l) {
		return errors.Wrapf(ErrShapeMismatch, "scratch does not fit a %dx%d layer", l.inputSize, l.outputSize)
	}
	if s.stage != stageNodeValues {
		return errors.Wrap(ErrStateMismatch, "accumulating gradients without fresh node values")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// weightGradient[out*inputSize + in] += nodeValues[out] * inputs[in]
	nodeValues := mat.NewVecDense(l.outputSize, s.NodeValues)
	inputs := mat.NewVecDense(l.inputSize, s.Inputs)
	l.wGrad.RankOne(l.wGrad, 1, nodeValues, inputs)
	floats.Add(l.biasGradient, s.NodeValues)

	s.stage = stageAccumulated
	return nil
}

// ApplyGradient performs one momentum step with weight decay and clears the gradients:
//
//	velocity = velocity*momentum - gradient*learnRate
//	weight   = weight*(1 - regularization*learnRate) + velocity
//
// Biases follow the same rule without the decay term.
func (l *Layer) ApplyGradient(learnRate, regularization, momentum float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	weightDecay := 1 - regularization*learnRate
	for i, weight := range l.weights {
		velocity := l.weightVelocity[i]*momentum - l.weightGradient[i]*learnRate
		l.weightVelocity[i] = velocity
		l.weights[i] = weight*weightDecay + velocity
		l.weightGradient[i] = 0
	}
	for i := range l.biases {
		velocity := l.biasVelocity[i]*momentum - l.biasGradient[i]*learnRate
		l.biasVelocity[i] = velocity
		l.biases[i] += velocity
		l.biasGradient[i] = 0
	}
}
