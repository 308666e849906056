package neuralnet

import "github.com/pkg/errors"

// Optimizer defines interface to apply accumulated gradients to the layers.
type Optimizer interface {
	Apply(layers []*Layer, batchSize int) error
}

// SGD implements gradient descent with momentum and weight decay.
type SGD struct {
	LearnRate      float64
	Regularization float64
	Momentum       float64
}

// Apply updates every layer once. The learning rate is divided by batchSize so the
// summed gradients act as an average.
func (o *SGD) Apply(layers []*Layer, batchSize int) error {
	if batchSize <= 0 {
		return errors.Wrapf(ErrEmptyBatch, "batch size %d", batchSize)
	}
	lr := o.LearnRate / float64(batchSize)
	for _, l := range layers {
		l.ApplyGradient(lr, o.Regularization, o.Momentum)
	}
	return nil
}
