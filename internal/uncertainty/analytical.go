// Package uncertainty quantifies how far a PMI estimate can be trusted: analytical
// error propagation, seeded Monte Carlo simulation, validation against published
// cases and a composite confidence score.
package uncertainty

import (
	"math"

	"pmiengine/adapters/devmodels"
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
)

// z-scores for the two-sided analytical intervals
const (
	z95 = 1.96
	z99 = 2.58
)

// Source names
const (
	SourceTemperature = "temperature"
	SourceThreshold   = "threshold"
	SourceLength      = "length"
	SourceModel       = "model"
)

// Sources are the input uncertainties fed to propagation and simulation
type Sources struct {
	TemperatureSigmaC float64 `json:"temperature_sigma_c"`
	ThresholdRel      float64 `json:"threshold_rel"`
	LengthRel         float64 `json:"length_rel"`
	LengthImpact      float64 `json:"length_impact"`
	ModelRel          float64 `json:"model_rel"`
}

// DefaultSources returns 1 °C temperature error, 20% threshold spread, 10% length
// error at half impact and 25% model error.
func DefaultSources() Sources {
	return Sources{
		TemperatureSigmaC: 1.0,
		ThresholdRel:      0.20,
		LengthRel:         0.10,
		LengthImpact:      0.5,
		ModelRel:          0.25,
	}
}

// Input identifies the estimate being assessed
type Input struct {
	Profile  *species.Profile
	Stage    species.Stage
	LengthMM *float64
	AmbientC float64
	Method   pmi.Method
}

func (in Input) modelInput() devmodels.Input {
	return devmodels.Input{
		Profile:       in.Profile,
		Stage:         in.Stage,
		LengthMM:      in.LengthMM,
		EffectiveTemp: in.effectiveTemp(),
	}
}

func (in Input) effectiveTemp() float64 {
	if in.Profile == nil {
		return 0
	}
	return in.Profile.EffectiveTemp(in.AmbientC)
}

// Interval is a confidence interval in days
type Interval struct {
	Level    float64 `json:"level"`
	LowDays  float64 `json:"low_days"`
	HighDays float64 `json:"high_days"`
}

// Width returns HighDays - LowDays
func (iv Interval) Width() float64 {
	return iv.HighDays - iv.LowDays
}

// Contains reports whether days lies inside the interval
func (iv Interval) Contains(days float64) bool {
	return days >= iv.LowDays && days <= iv.HighDays
}

// Component is one relative uncertainty term
type Component struct {
	Source   string  `json:"source"`
	Relative float64 `json:"relative"`
}

// Analytical is the result of first-order error propagation
type Analytical struct {
	PMIDays             float64     `json:"pmi_days"`
	Components          []Component `json:"components"`
	RelativeUncertainty float64     `json:"relative_uncertainty"`
	StdDevDays          float64     `json:"std_dev_days"`
	CI95                Interval    `json:"ci_95"`
	CI99                Interval    `json:"ci_99"`
}

// Propagate combines the independent relative error terms in quadrature. PMI is
// inversely proportional to Teff, so a temperature error σT contributes σT/Teff.
func Propagate(in Input, src Sources) (Analytical, error) {
	res, err := devmodels.Compute(in.Method, in.modelInput())
	if err != nil {
		return Analytical{}, err
	}
	teff := in.effectiveTemp()
	if teff <= 0 {
		return Analytical{}, core.NewNonViableTemperatureError(in.AmbientC, in.Profile.BaseTempC)
	}

	comps := []Component{
		{Source: SourceTemperature, Relative: src.TemperatureSigmaC / teff},
		{Source: SourceThreshold, Relative: src.ThresholdRel},
	}
	if in.LengthMM != nil {
		comps = append(comps, Component{Source: SourceLength, Relative: src.LengthRel * src.LengthImpact})
	}
	comps = append(comps, Component{Source: SourceModel, Relative: src.ModelRel})

	var sumSq float64
	for _, c := range comps {
		sumSq += c.Relative * c.Relative
	}
	rel := math.Sqrt(sumSq)
	days := res.Days()
	sigma := rel * days

	return Analytical{
		PMIDays:             days,
		Components:          comps,
		RelativeUncertainty: rel,
		StdDevDays:          sigma,
		CI95:                normalInterval(0.95, days, sigma, z95),
		CI99:                normalInterval(0.99, days, sigma, z99),
	}, nil
}

func normalInterval(level, center, sigma, z float64) Interval {
	return Interval{
		Level:    level,
		LowDays:  math.Max(0, center-z*sigma),
		HighDays: center + z*sigma,
	}
}
