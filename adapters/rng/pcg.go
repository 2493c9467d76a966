package rng

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"pmiengine/domain/core"
	"pmiengine/ports"
)

const drawTolerance = 1e-12

// PCGStreams hands out PCG sources keyed by operation name and unit index
type PCGStreams struct{}

var _ ports.RNGPort = (*PCGStreams)(nil)

// NewPCGStreams creates the stream factory
func NewPCGStreams() *PCGStreams {
	return &PCGStreams{}
}

// Stream derives both PCG words from the base seed and the unit key, so the
// source depends only on (name, index, baseSeed) and never on scheduling.
func (p *PCGStreams) Stream(ctx context.Context, name string, index int, baseSeed int64) (rand.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("stream index must be non-negative, got %d", index)
	}
	key := fmt.Sprintf("%s/%d", name, index)
	return rand.NewPCG(core.SeedFor(baseSeed, key), uint64(index)), nil
}

// ValidateSeed draws len(expected) floats from stream 0 and compares them
func (p *PCGStreams) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	src, err := p.Stream(ctx, name, 0, seed)
	if err != nil {
		return err
	}
	r := rand.New(src)
	for i, want := range expected {
		got := r.Float64()
		if math.Abs(got-want) > drawTolerance {
			return fmt.Errorf("seed %d for %s: draw %d = %v, expected %v", seed, name, i, got, want)
		}
	}
	return nil
}

// Draws returns the first n floats of stream 0
func (p *PCGStreams) Draws(ctx context.Context, name string, seed int64, n int) ([]float64, error) {
	src, err := p.Stream(ctx, name, 0, seed)
	if err != nil {
		return nil, err
	}
	r := rand.New(src)
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out, nil
}
