package devmodels

import "math"

// isomegalen places the specimen inside its stage by length and interpolates the
// required units from the start of the stage towards the start of the next one.
// Without a length it falls back to the stage midpoint.
func isomegalen(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	if in.LengthMM == nil {
		return degreeDays(th.Mid*in.scale(), in.EffectiveTemp), nil
	}

	lengths, _ := in.Profile.Length(in.Stage)
	frac := 0.5
	if span := lengths.Span(); span > 0 {
		frac = clamp01((*in.LengthMM - lengths.Min) / span)
	}

	end := th.Max
	if next, ok := in.Stage.Next(); ok {
		if nextTh, ok := in.Profile.Threshold(next); ok {
			end = nextTh.Min
		}
	}
	units := th.Min + frac*(end-th.Min)
	return degreeDays(units*in.scale(), in.EffectiveTemp), nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
