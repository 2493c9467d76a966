package devmodels

import "math"

const (
	// ThermalOptimumOffset places the species optimum this far above its base temperature
	ThermalOptimumOffset = 15.0
	// ThermalCeilingOffset is where development gains are treated as exhausted
	ThermalCeilingOffset = 25.0
)

// thermalSummation saturates the effective temperature above the species optimum:
// linear up to the optimum, then approaching the ceiling with diminishing returns.
func thermalSummation(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	return degreeDays(th.Mid*in.scale(), SaturatedEffectiveTemp(in.EffectiveTemp)), nil
}

// SaturatedEffectiveTemp is strictly increasing in t and never exceeds the ceiling offset.
func SaturatedEffectiveTemp(t float64) float64 {
	if t <= ThermalOptimumOffset {
		return t
	}
	span := ThermalCeilingOffset - ThermalOptimumOffset
	return ThermalOptimumOffset + span*(1-math.Exp(-(t-ThermalOptimumOffset)/span))
}
