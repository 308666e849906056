package neuralnet

import "github.com/pkg/errors"

// TrainingExample is one input vector with its expected network output.
type TrainingExample struct {
	Input    []float64
	Expected []float64
	Label    int
}

// NewTrainingExample pairs input with a one-hot expected output for label.
func NewTrainingExample(input []float64, label, numLabels int) (TrainingExample, error) {
	expected, err := CreateOneHot(label, numLabels)
	if err != nil {
		return TrainingExample{}, err
	}
	return TrainingExample{Input: input, Expected: expected, Label: label}, nil
}

// CreateOneHot returns a vector of length numClasses with 1 at labelIndex.
func CreateOneHot(labelIndex, numClasses int) ([]float64, error) {
	if numClasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%d classes", numClasses)
	}
	if labelIndex < 0 || labelIndex >= numClasses {
		return nil, errors.Wrapf(ErrLabelOutOfRange, "label %d not in [0, %d)", labelIndex, numClasses)
	}
	oneHot := make([]float64, numClasses)
	oneHot[labelIndex] = 1
	return oneHot, nil
}
