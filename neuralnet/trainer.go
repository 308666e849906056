package neuralnet

import (
	"time"

	"github.com/pkg/errors"
)

// TrainOptions controls TrainMiniBatch.
type TrainOptions struct {
	Epochs    int
	BatchSize int
	// Eval is scored after every epoch. Defaults to the training examples.
	Eval []TrainingExample
	// OnEpoch, if set, receives the stats of every finished epoch.
	OnEpoch func(EpochStats)
}

// EpochStats summarizes one epoch of training.
type EpochStats struct {
	Epoch     int
	LearnRate float64
	Cost      float64
	Accuracy  float64
	Elapsed   time.Duration
}

// TrainMiniBatch trains for opts.Epochs epochs. Each epoch shuffles the examples
// with the network's random source and runs one TrainStep per mini-batch; the last
// batch of an epoch may be shorter. The learning rate decays per epoch following
// Params.LearnRateAt.
func (nn *NeuralNetwork) TrainMiniBatch(examples []TrainingExample, opts TrainOptions) ([]EpochStats, error) {
	if len(examples) == 0 {
		return nil, errors.Wrap(ErrEmptyBatch, "no training examples")
	}
	if opts.Epochs <= 0 || opts.BatchSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidParams, "epochs = %d, batch size = %d", opts.Epochs, opts.BatchSize)
	}
	eval := opts.Eval
	if len(eval) == 0 {
		eval = examples
	}
	inputs, expected := splitExamples(eval)

	order := make([]TrainingExample, len(examples))
	copy(order, examples)

	stats := make([]EpochStats, 0, opts.Epochs)
	for e := 0; e < opts.Epochs; e++ {
		start := time.Now()
		lr := nn.params.LearnRateAt(e)
		nn.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		for b := 0; b < len(order); b += opts.BatchSize {
			batch := order[b:min(b+opts.BatchSize, len(order))]
			if err := nn.TrainStep(batch, lr, nn.params.Regularization, nn.params.Momentum); err != nil {
				return stats, errors.Wrapf(err, "epoch %d, batch at %d", e, b)
			}
		}

		cost, err := nn.BatchCost(inputs, expected)
		if err != nil {
			return stats, errors.Wrapf(err, "epoch %d", e)
		}
		accuracy, err := nn.Accuracy(eval)
		if err != nil {
			return stats, errors.Wrapf(err, "epoch %d", e)
		}
		s := EpochStats{Epoch: e, LearnRate: lr, Cost: cost, Accuracy: accuracy, Elapsed: time.Since(start)}
		stats = append(stats, s)
		if opts.OnEpoch != nil {
			opts.OnEpoch(s)
		}
	}
	return stats, nil
}

func splitExamples(examples []TrainingExample) (inputs, expected [][]float64) {
	inputs = make([][]float64, len(examples))
	expected = make([][]float64, len(examples))
	for i, ex := range examples {
		inputs[i] = ex.Input
		expected[i] = ex.Expected
	}
	return inputs, expected
}
