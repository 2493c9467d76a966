package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random sources so that simulations replay exactly
type RNGPort interface {
	// Stream returns the deterministic source for unit index of a named operation.
	// Distinct (name, index) pairs give independent streams for the same base seed.
	Stream(ctx context.Context, name string, index int, baseSeed int64) (rand.Source, error)

	// ValidateSeed ensures the seed produces the expected leading draws
	ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error

	// Draws returns the first n floats of stream 0, the values ValidateSeed checks
	Draws(ctx context.Context, name string, seed int64, n int) ([]float64, error)
}
