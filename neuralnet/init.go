package neuralnet

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// InitializerKind selects a weight initializer at network construction time.
type InitializerKind int

const (
	XavierInitializer InitializerKind = iota
)

func (k InitializerKind) String() string {
	switch k {
	case XavierInitializer:
		return "xavier"
	}
	return "unknown"
}

// Initializer produces starting weights for a layer with the given fan-in and fan-out.
type Initializer interface {
	InitialWeight(fanIn, fanOut int) float64
}

// NewInitializer returns the initializer for kind drawing from rng.
func NewInitializer(kind InitializerKind, rng *rand.Rand) (Initializer, error) {
	if rng == nil {
		return nil, errors.New("initializer needs a random source")
	}
	switch kind {
	case XavierInitializer:
		return &Xavier{rng: rng}, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "initializer %d", int(kind))
}

// Xavier is the Glorot uniform initializer. Each weight is a sign draw followed by
// a magnitude draw in [0, 1), scaled by sqrt(6)/sqrt(fanIn+fanOut).
type Xavier struct {
	rng *rand.Rand
}

func (x *Xavier) InitialWeight(fanIn, fanOut int) float64 {
	bound := math.Sqrt(6) / math.Sqrt(float64(fanIn+fanOut))
	sign := x.rng.Intn(2)
	value := x.rng.Float64()
	if sign == 1 {
		return bound * value
	}
	return -bound * value
}
