package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// NeuralNetwork is a stack of fully connected layers trained with backpropagation.
//
// Predict, Classify, BatchCost and Accuracy may run concurrently with each other.
// TrainStep takes the network exclusively.
type NeuralNetwork struct {
	layers []*Layer
	params Params
	cost   CostFunction
	rng    *rand.Rand

	// one exampleScratch per example slot of the last batch
	scratch []exampleScratch

	mu sync.RWMutex
}

// NewNeuralNetwork builds len(cfg.LayerSizes)-1 layers chaining consecutive sizes.
func NewNeuralNetwork(cfg Config) (*NeuralNetwork, error) {
	if len(cfg.LayerSizes) < 2 {
		return nil, errors.Wrapf(ErrInvalidSize, "need at least 2 layer sizes, got %d", len(cfg.LayerSizes))
	}
	if cfg.Rand == nil {
		return nil, errors.New("network needs a random source")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	activation, err := NewActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	cost, err := NewCost(cfg.Cost)
	if err != nil {
		return nil, err
	}
	initializer, err := NewInitializer(cfg.Initializer, cfg.Rand)
	if err != nil {
		return nil, err
	}
	if cfg.InitialWeights != nil && len(cfg.InitialWeights) != len(cfg.LayerSizes)-1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d initial weight sets for %d layers",
			len(cfg.InitialWeights), len(cfg.LayerSizes)-1)
	}

	nn := &NeuralNetwork{
		layers: make([]*Layer, len(cfg.LayerSizes)-1),
		params: cfg.Params,
		cost:   cost,
		rng:    cfg.Rand,
	}
	for i := range nn.layers {
		l, err := NewLayer(cfg.LayerSizes[i], cfg.LayerSizes[i+1], initializer, activation, cost)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		if cfg.InitialWeights != nil && cfg.InitialWeights[i] != nil {
			if err := l.setWeights(cfg.InitialWeights[i]); err != nil {
				return nil, errors.Wrapf(err, "layer %d", i)
			}
		}
		nn.layers[i] = l
	}
	return nn, nil
}

func (nn *NeuralNetwork) Params() Params {
	return nn.params
}

func (nn *NeuralNetwork) NumLayers() int {
	return len(nn.layers)
}

// LayerSizes returns the unit counts from input to output.
func (nn *NeuralNetwork) LayerSizes() []int {
	sizes := make([]int, 0, len(nn.layers)+1)
	sizes = append(sizes, nn.layers[0].inputSize)
	for _, l := range nn.layers {
		sizes = append(sizes, l.outputSize)
	}
	return sizes
}

func (nn *NeuralNetwork) InputSize() int  { return nn.layers[0].inputSize }
func (nn *NeuralNetwork) OutputSize() int { return nn.layers[len(nn.layers)-1].outputSize }

// Weight reads the weight from unit in to unit out of layer i.
func (nn *NeuralNetwork) Weight(i, in, out int) float64 {
	nn.mu.RLock()
	defer nn.mu.RUnlock()
	return nn.layers[i].Weight(in, out)
}

// Bias reads the bias of unit out of layer i.
func (nn *NeuralNetwork) Bias(i, out int) float64 {
	nn.mu.RLock()
	defer nn.mu.RUnlock()
	return nn.layers[i].Bias(out)
}

func (nn *NeuralNetwork) checkInput(input []float64) error {
	if len(input) != nn.InputSize() {
		return errors.Wrapf(ErrShapeMismatch, "input has length %d, network expects %d", len(input), nn.InputSize())
	}
	return nil
}

func (nn *NeuralNetwork) checkExpected(expected []float64) error {
	if len(expected) != nn.OutputSize() {
		return errors.Wrapf(ErrShapeMismatch, "expected output has length %d, network produces %d", len(expected), nn.OutputSize())
	}
	return nil
}

func (nn *NeuralNetwork) predict(input []float64) []float64 {
	output := input
	for _, l := range nn.layers {
		output = l.Forward(output)
	}
	return output
}

// Predict feeds input through every layer and returns the output activations.
func (nn *NeuralNetwork) Predict(input []float64) ([]float64, error) {
	if err := nn.checkInput(input); err != nil {
		return nil, err
	}
	nn.mu.RLock()
	defer nn.mu.RUnlock()
	return nn.predict(input), nil
}

// Classify returns the index of the largest output, the lowest index on ties,
// together with the outputs.
func (nn *NeuralNetwork) Classify(input []float64) (int, []float64, error) {
	output, err := nn.Predict(input)
	if err != nil {
		return 0, nil, err
	}
	return floats.MaxIdx(output), output, nil
}

// BatchCost returns the mean cost over the given examples, using the network's
// cost function for each of them.
func (nn *NeuralNetwork) BatchCost(inputs, expected [][]float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, errors.Wrap(ErrEmptyBatch, "batch cost")
	}
	if len(inputs) != len(expected) {
		return 0, errors.Wrapf(ErrShapeMismatch, "%d inputs, %d expected outputs", len(inputs), len(expected))
	}
	for i := range inputs {
		if err := nn.checkInput(inputs[i]); err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		if err := nn.checkExpected(expected[i]); err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
	}

	nn.mu.RLock()
	defer nn.mu.RUnlock()
	var total float64
	for i := range inputs {
		total += nn.cost.Cost(nn.predict(inputs[i]), expected[i])
	}
	return total / float64(len(inputs)), nil
}

// Accuracy returns the fraction of examples whose predicted class matches the
// position of the largest expected output.
func (nn *NeuralNetwork) Accuracy(examples []TrainingExample) (float64, error) {
	if len(examples) == 0 {
		return 0, errors.Wrap(ErrEmptyBatch, "accuracy")
	}
	correct := 0
	for i, ex := range examples {
		if err := nn.checkExpected(ex.Expected); err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		got, _, err := nn.Classify(ex.Input)
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		if got == floats.MaxIdx(ex.Expected) {
			correct++
		}
	}
	return float64(correct) / float64(len(examples)), nil
}

// TrainStep runs backpropagation for every example of batch and then updates
// every layer once with learnRate/len(batch).
//
// Examples are processed in parallel, each in its own scratch buffers. Gradients
// are then summed per layer in batch order, so a step is deterministic.
func (nn *NeuralNetwork) TrainStep(batch []TrainingExample, learnRate, regularization, momentum float64) error {
	if len(batch) == 0 {
		return errors.Wrap(ErrEmptyBatch, "train step")
	}
	for i, ex := range batch {
		if err := nn.checkInput(ex.Input); err != nil {
			return errors.Wrapf(err, "example %d", i)
		}
		if err := nn.checkExpected(ex.Expected); err != nil {
			return errors.Wrapf(err, "example %d", i)
		}
	}

	nn.mu.Lock()
	defer nn.mu.Unlock()

	nn.ensureScratch(len(batch))

	err := parallelFor(len(batch), func(i int) error {
		return nn.backpropagate(batch[i], nn.scratch[i])
	})
	if err == nil {
		err = parallelFor(len(nn.layers), func(li int) error {
			for _, es := range nn.scratch {
				if err := nn.layers[li].AccumulateGradients(es[li]); err != nil {
					return errors.Wrapf(err, "layer %d", li)
				}
			}
			return nil
		})
	}
	if err != nil {
		nn.clearGradients()
		return err
	}

	opt := &SGD{LearnRate: learnRate, Regularization: regularization, Momentum: momentum}
	return opt.Apply(nn.layers, len(batch))
}

// ensureScratch sizes the scratch pool to exactly batchSize example slots.
func (nn *NeuralNetwork) ensureScratch(batchSize int) {
	if len(nn.scratch) == batchSize {
		return
	}
	nn.scratch = make([]exampleScratch, batchSize)
	for i := range nn.scratch {
		nn.scratch[i] = newExampleScratch(nn.layers)
	}
}

// backpropagate runs the forward pass for ex into es and then computes node values
// from the output layer back to the first.
func (nn *NeuralNetwork) backpropagate(ex TrainingExample, es exampleScratch) error {
	activations := ex.Input
	for i, l := range nn.layers {
		activations = l.ForwardWithScratch(activations, es[i])
	}

	last := len(nn.layers) - 1
	if err := nn.layers[last].ComputeOutputNodeValues(es[last], ex.Expected); err != nil {
		return errors.Wrap(err, "output layer")
	}
	for i := last - 1; i >= 0; i-- {
		if err := nn.layers[i].ComputeHiddenNodeValues(es[i], nn.layers[i+1], es[i+1].NodeValues); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
	}
	return nil
}

func (nn *NeuralNetwork) clearGradients() {
	for _, l := range nn.layers {
		clear(l.weightGradient)
		clear(l.biasGradient)
	}
}

// Debug
func (l *Layer) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d -> %d\n", l.inputSize, l.outputSize))
	for out := 0; out < l.outputSize; out++ {
		sb.WriteString(fmt.Sprintf("Unit %d: bias=%.4f weights=%.4f\n", out, l.biases[out],
			l.weights[out*l.inputSize:(out+1)*l.inputSize]))
	}
	return sb.String()
}

func (nn *NeuralNetwork) String() string {
	nn.mu.RLock()
	defer nn.mu.RUnlock()

	var sb strings.Builder
	for i, l := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d: %s\n", i, l.String()))
	}
	return sb.String()
}
