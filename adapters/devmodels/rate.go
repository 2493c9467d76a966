package devmodels

import "pmiengine/domain/pmi"

// developmentRate models the daily fraction of complete development as a + b*Teff,
// with b = 1 / (units to finish the pupal stage) and a the species intercept.
func developmentRate(in Input) (Result, error) {
	th, err := prepare(in)
	if err != nil {
		return Result{}, err
	}
	total := in.Profile.CompleteDevelopment()
	position := th.Mid * in.scale() / total
	rate := in.Profile.RateIntercept + in.EffectiveTemp/total

	days := position / rate
	return Result{
		RequiredUnits: th.Mid * in.scale(),
		Unit:          pmi.UnitADD,
		Hours:         days * pmi.HoursPerDay,
	}, nil
}
