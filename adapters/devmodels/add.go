package devmodels

import "pmiengine/domain/pmi"

// addStandard divides the stage midpoint by the effective temperature
func addStandard(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	return degreeDays(th.Mid*in.scale(), in.EffectiveTemp), nil
}

// addOptimistic uses the stage minimum: the shortest plausible PMI
func addOptimistic(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	return degreeDays(th.Min*in.scale(), in.EffectiveTemp), nil
}

// addConservative uses the stage maximum: the longest plausible PMI
func addConservative(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	return degreeDays(th.Max*in.scale(), in.EffectiveTemp), nil
}

// adhMethod works in accumulated degree hours
func adhMethod(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	units := th.Mid * pmi.HoursPerDay * in.scale()
	return Result{RequiredUnits: units, Unit: pmi.UnitADH, Hours: units / in.EffectiveTemp}, nil
}
