package neuralnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXavierBounds(t *testing.T) {
	xavier, err := NewInitializer(XavierInitializer, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	bound := math.Sqrt(6) / math.Sqrt(784+200)
	var positive, negative int
	for i := 0; i < 10000; i++ {
		w := xavier.InitialWeight(784, 200)
		require.True(t, w > -bound-1e-15 && w < bound, "weight %v outside ±%v", w, bound)
		if w > 0 {
			positive++
		} else if w < 0 {
			negative++
		}
	}
	// both signs show up in roughly equal numbers
	assert.InDelta(t, 5000, positive, 300)
	assert.InDelta(t, 5000, negative, 300)
}

func TestXavierDrawsSignThenMagnitude(t *testing.T) {
	xavier, err := NewInitializer(XavierInitializer, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	ref := rand.New(rand.NewSource(11))
	bound := math.Sqrt(6) / math.Sqrt(2+3)
	for i := 0; i < 50; i++ {
		sign := ref.Intn(2)
		want := ref.Float64() * bound
		if sign == 0 {
			want = -want
		}
		assert.Equal(t, want, xavier.InitialWeight(2, 3))
	}
}

func TestNewInitializer(t *testing.T) {
	_, err := NewInitializer(XavierInitializer, nil)
	assert.Error(t, err)

	_, err = NewInitializer(InitializerKind(5), rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
