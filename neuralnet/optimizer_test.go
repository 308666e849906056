package neuralnet

import (
	"math/rand"
	"testing"
)

func TestSGDApplyInvalidBatchSize(t *testing.T) {
	sgd := &SGD{LearnRate: 0.1}
	layers := []*Layer{} // Apply should check batchSize first.
	if err := sgd.Apply(layers, 0); err == nil {
		t.Error("SGD.Apply with batchSize=0 did not return error")
	}
	if err := sgd.Apply(layers, -1); err == nil {
		t.Error("SGD.Apply with batchSize=-1 did not return error")
	}
}

func TestSGDApplyValidBatchSize(t *testing.T) {
	const epsilon = 1e-12

	nn, err := NewNeuralNetwork(Config{
		LayerSizes: []int{1, 1, 1},
		Params:     DefaultParams(),
		Rand:       rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewNeuralNetwork returned an unexpected error: %v", err)
	}
	sgd := &SGD{LearnRate: 0.1, Regularization: 0.01, Momentum: 0.9}
	batchSize := 2

	initialWeight := 1.0
	initialBias := 0.5
	initialWeightVelocity := 0.1
	initialBiasVelocity := 0.05
	gradWeight := 0.2
	gradBias := 0.1

	for _, layer := range nn.layers {
		for k := range layer.weights {
			layer.weights[k] = initialWeight
			layer.weightVelocity[k] = initialWeightVelocity
			layer.weightGradient[k] = gradWeight
		}
		for k := range layer.biases {
			layer.biases[k] = initialBias
			layer.biasVelocity[k] = initialBiasVelocity
			layer.biasGradient[k] = gradBias
		}
	}

	if err := sgd.Apply(nn.layers, batchSize); err != nil {
		t.Fatalf("SGD.Apply returned an unexpected error: %v", err)
	}

	lr := sgd.LearnRate / float64(batchSize)
	expectedVelocityW := sgd.Momentum*initialWeightVelocity - gradWeight*lr
	expectedWeight := initialWeight*(1-sgd.Regularization*lr) + expectedVelocityW
	expectedVelocityB := sgd.Momentum*initialBiasVelocity - gradBias*lr
	expectedBias := initialBias + expectedVelocityB

	for i, layer := range nn.layers {
		for k := range layer.weights {
			if diff := expectedWeight - layer.weights[k]; diff < -epsilon || diff > epsilon {
				t.Errorf("Layer %d, Weight %d: Expected weight %f, got %f. Diff: %g", i, k, expectedWeight, layer.weights[k], diff)
			}
			if diff := expectedVelocityW - layer.weightVelocity[k]; diff < -epsilon || diff > epsilon {
				t.Errorf("Layer %d, Weight %d: Expected weight velocity %f, got %f. Diff: %g", i, k, expectedVelocityW, layer.weightVelocity[k], diff)
			}
			if layer.weightGradient[k] != 0 {
				t.Errorf("Layer %d, Weight %d: gradient not reset, got %f", i, k, layer.weightGradient[k])
			}
		}
		for k := range layer.biases {
			if diff := expectedBias - layer.biases[k]; diff < -epsilon || diff > epsilon {
				t.Errorf("Layer %d, Bias %d: Expected bias %f, got %f. Diff: %g", i, k, expectedBias, layer.biases[k], diff)
			}
			if diff := expectedVelocityB - layer.biasVelocity[k]; diff < -epsilon || diff > epsilon {
				t.Errorf("Layer %d, Bias %d: Expected bias velocity %f, got %f. Diff: %g", i, k, expectedVelocityB, layer.biasVelocity[k], diff)
			}
			if layer.biasGradient[k] != 0 {
				t.Errorf("Layer %d, Bias %d: gradient not reset, got %f", i, k, layer.biasGradient[k])
			}
		}
	}
}
