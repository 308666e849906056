package main

import (
	"flag"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"backprop/neuralnet"
)

func parseLayerSizes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "layer size %q", p)
		}
		sizes[i] = n
	}
	return sizes, nil
}

func main() {
	defaults := neuralnet.DefaultParams()
	var (
		trainImages = flag.String("train-images", "data/train-images-idx3-ubyte", "training images (IDX)")
		trainLabels = flag.String("train-labels", "data/train-labels-idx1-ubyte", "training labels (IDX)")
		testImages  = flag.String("test-images", "data/t10k-images-idx3-ubyte", "test images (IDX), optional")
		testLabels  = flag.String("test-labels", "data/t10k-labels-idx1-ubyte", "test labels (IDX), optional")
		layers      = flag.String("layers", "784,200,10", "comma separated layer sizes, input first")
		epochs      = flag.Int("epochs", 10, "training epochs")
		batchSize   = flag.Int("batch", 32, "mini-batch size")
		limit       = flag.Int("limit", 0, "use only the first N training images (0 = all)")
		lr          = flag.Float64("lr", defaults.LearnRate, "initial learning rate")
		decay       = flag.Float64("decay", defaults.LearnRateDecay, "learning rate decay per epoch")
		momentum    = flag.Float64("momentum", defaults.Momentum, "momentum coefficient")
		reg         = flag.Float64("reg", defaults.Regularization, "weight decay (L2) coefficient")
		seed        = flag.Int64("seed", 1, "random seed for initialization and shuffling")
		dump        = flag.Int("dump", -1, "write training image N to digit.png and exit")
	)
	flag.Parse()

	train, images, rows, cols, err := loadExamples(*trainImages, *trainLabels, *limit)
	if err != nil {
		log.Fatalf("Error loading MNIST: %v", err)
	}
	log.Printf("loaded %d training images of %dx%d", len(train), rows, cols)

	if *dump >= 0 {
		if err := saveImg(images, rows, cols, *dump, "digit.png"); err != nil {
			log.Fatalf("Error saving image: %v", err)
		}
		log.Printf("image %d (label %d) saved as digit.png", *dump, train[*dump].Label)
		return
	}

	var test []neuralnet.TrainingExample
	if *testImages != "" && *testLabels != "" {
		test, _, _, _, err = loadExamples(*testImages, *testLabels, 0)
		if err != nil {
			log.Printf("no test set, scoring on training data: %v", err)
			test = nil
		}
	}

	sizes, err := parseLayerSizes(*layers)
	if err != nil {
		log.Fatal(err)
	}
	nn, err := neuralnet.NewNeuralNetwork(neuralnet.Config{
		LayerSizes:  sizes,
		Activation:  neuralnet.SigmoidActivation,
		Cost:        neuralnet.SquaredErrorCost,
		Initializer: neuralnet.XavierInitializer,
		Params: neuralnet.Params{
			LearnRate:      *lr,
			LearnRateDecay: *decay,
			Momentum:       *momentum,
			Regularization: *reg,
		},
		Rand: rand.New(rand.NewSource(*seed)),
	})
	if err != nil {
		log.Fatalf("Error building network: %v", err)
	}

	_, err = nn.TrainMiniBatch(train, neuralnet.TrainOptions{
		Epochs:    *epochs,
		BatchSize: *batchSize,
		Eval:      test,
		OnEpoch: func(s neuralnet.EpochStats) {
			log.Printf("epoch %d: lr=%.5f cost=%.5f accuracy=%.2f%% (%s)",
				s.Epoch, s.LearnRate, s.Cost, 100*s.Accuracy, s.Elapsed.Round(time.Millisecond))
		},
	})
	if err != nil {
		log.Fatalf("Error training: %v", err)
	}
}
