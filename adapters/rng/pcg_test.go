package rng

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIsDeterministic(t *testing.T) {
	ctx := context.Background()
	p := NewPCGStreams()

	a, err := p.Stream(ctx, "montecarlo", 3, 42)
	require.NoError(t, err)
	b, err := p.Stream(ctx, "montecarlo", 3, 42)
	require.NoError(t, err)

	ra, rb := rand.New(a), rand.New(b)
	for i := 0; i < 100; i++ {
		assert.Equal(t, ra.Float64(), rb.Float64())
	}
}

func TestStreamsDifferByKey(t *testing.T) {
	ctx := context.Background()
	p := NewPCGStreams()

	first := func(name string, index int, seed int64) uint64 {
		src, err := p.Stream(ctx, name, index, seed)
		require.NoError(t, err)
		return src.Uint64()
	}

	base := first("montecarlo", 0, 42)
	assert.NotEqual(t, base, first("montecarlo", 1, 42))
	assert.NotEqual(t, base, first("montecarlo", 0, 43))
	assert.NotEqual(t, base, first("crossval", 0, 42))
}

func TestStreamRejectsNegativeIndex(t *testing.T) {
	_, err := NewPCGStreams().Stream(context.Background(), "x", -1, 1)
	assert.Error(t, err)
}

func TestStreamHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPCGStreams().Stream(ctx, "x", 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateSeed(t *testing.T) {
	ctx := context.Background()
	p := NewPCGStreams()

	draws, err := p.Draws(ctx, "selfcheck", 7, 5)
	require.NoError(t, err)
	require.NoError(t, p.ValidateSeed(ctx, "selfcheck", 7, draws))

	draws[2] += 0.5
	assert.Error(t, p.ValidateSeed(ctx, "selfcheck", 7, draws))
}
