package devmodels

import (
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
)

// Input is everything a development model reads
type Input struct {
	Profile       *species.Profile
	Stage         species.Stage
	LengthMM      *float64
	EffectiveTemp float64

	// UnitScale multiplies the required development units; 0 means 1. Simulations
	// use it to draw thresholds from their published range.
	UnitScale float64
}

// Result is a model's output. Hours is the PMI point value.
type Result struct {
	RequiredUnits float64  `json:"required_units"`
	Unit          pmi.Unit `json:"unit"`
	Hours         float64  `json:"hours"`
}

// Days returns the PMI in days
func (r Result) Days() float64 {
	return r.Hours / pmi.HoursPerDay
}

// Model maps a specimen and an effective temperature to a PMI
type Model func(Input) (Result, error)

// registry holds one model per method variant; the array length ties it to pmi.MethodCount.
var registry = [pmi.MethodCount]Model{
	pmi.ADDStandard:      addStandard,
	pmi.ADDOptimistic:    addOptimistic,
	pmi.ADDConservative:  addConservative,
	pmi.ADHMethod:        adhMethod,
	pmi.IsomegalenMethod: isomegalen,
	pmi.ThermalSummation: thermalSummation,
	pmi.DevelopmentRate:  developmentRate,
}

// Lookup returns the model for a method
func Lookup(m pmi.Method) (Model, error) {
	if !m.Valid() || registry[m] == nil {
		return nil, core.NewUnknownMethodError(m.String())
	}
	return registry[m], nil
}

// Compute runs the model for a method
func Compute(m pmi.Method, in Input) (Result, error) {
	model, err := Lookup(m)
	if err != nil {
		return Result{}, err
	}
	return model(in)
}

// prepare checks the shared preconditions and returns the stage threshold
func prepare(in Input) (species.Threshold, error) {
	if in.Profile == nil {
		return species.Threshold{}, core.NewInputValidationError("species", "no profile")
	}
	th, ok := in.Profile.Threshold(in.Stage)
	if !ok {
		return species.Threshold{}, core.NewUnknownStageError(string(in.Stage))
	}
	if in.EffectiveTemp <= 0 {
		return species.Threshold{}, core.NewNonViableTemperatureError(in.EffectiveTemp+in.Profile.BaseTempC, in.Profile.BaseTempC)
	}
	return th, nil
}

func (in Input) scale() float64 {
	if in.UnitScale <= 0 {
		return 1
	}
	return in.UnitScale
}

// degreeDays converts required ADD at a linear effective temperature into a result
func degreeDays(units, effective float64) Result {
	days := units / effective
	return Result{RequiredUnits: units, Unit: pmi.UnitADD, Hours: days * pmi.HoursPerDay}
}
