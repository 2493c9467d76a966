// Package tempctx resolves the ambient temperature for an analysis.
package tempctx

import (
	"context"
	"fmt"

	"pmiengine/domain/core"
	"pmiengine/domain/specimen"
	"pmiengine/ports"
)

// hourOffset is one band of the diurnal adjustment
type hourOffset struct {
	fromHour, toHour int
	offsetC          float64
}

// diurnalOffsets shift a daily mean towards the temperature at the hour of discovery
var diurnalOffsets = []hourOffset{
	{0, 5, -6},
	{6, 8, -3},
	{9, 11, 0},
	{12, 16, 4},
	{17, 19, 1},
	{20, 23, -2},
}

// OffsetForHour returns the diurnal offset (°C) for an hour of day
func OffsetForHour(hour int) float64 {
	for _, b := range diurnalOffsets {
		if hour >= b.fromHour && hour <= b.toHour {
			return b.offsetC
		}
	}
	return 0
}

// Resolver prefers a manual value and otherwise adjusts the daily mean for the hour
// of observation.
type Resolver struct{}

var _ ports.TemperatureResolver = Resolver{}

// NewResolver creates a resolver
func NewResolver() Resolver {
	return Resolver{}
}

// Resolve implements ports.TemperatureResolver
func (Resolver) Resolve(ctx context.Context, req ports.TemperatureRequest) (specimen.TemperatureContext, error) {
	if err := ctx.Err(); err != nil {
		return specimen.TemperatureContext{}, err
	}
	if req.ManualC != nil {
		return specimen.Manual(*req.ManualC), nil
	}
	if req.DailyMeanC == nil {
		return specimen.TemperatureContext{}, core.NewInputValidationError("temperature", "neither a manual value nor a daily mean was given")
	}
	if req.ObservedAt.IsZero() {
		return specimen.TemperatureContext{}, core.NewInputValidationError("observed_at", "required to adjust a daily mean")
	}
	adjusted := *req.DailyMeanC + OffsetForHour(req.ObservedAt.Hour())
	return specimen.TemperatureContext{AmbientC: adjusted, Source: specimen.SourceTimeOfDay}, nil
}

// Describe renders a resolved context for logs and CLI output
func Describe(tc specimen.TemperatureContext) string {
	return fmt.Sprintf("%.1f°C (%s)", tc.AmbientC, tc.Source)
}
