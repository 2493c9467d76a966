package quality

import (
	"fmt"
	"math"

	"pmiengine/domain/species"
)

// Rule names, in evaluation order
const (
	RuleSpeciesReliability = "species_reliability"
	RuleStageSuitability   = "stage_suitability"
	RuleTemperatureRange   = "temperature_range"
	RuleMissingLength      = "missing_length"
	RuleLengthRange        = "length_range"
	RuleDevelopmentWindow  = "development_window"
	RuleMethodDisagreement = "method_disagreement"
)

// StageWindowDays is the documented PMI span (days) for specimens found at each stage
var StageWindowDays = map[species.Stage]species.Range{
	species.FirstInstar:  {Min: 0.5, Max: 5},
	species.SecondInstar: {Min: 1, Max: 8},
	species.ThirdInstar:  {Min: 2, Max: 25},
	species.Pupa:         {Min: 5, Max: 120},
}

// Rules returns the ordered rule list
func Rules() []Rule {
	return []Rule{
		{Name: RuleSpeciesReliability, Apply: speciesReliability},
		{Name: RuleStageSuitability, Apply: stageSuitability},
		{Name: RuleTemperatureRange, Apply: temperatureRange},
		{Name: RuleMissingLength, Apply: missingLength},
		{Name: RuleLengthRange, Apply: lengthRange},
		{Name: RuleDevelopmentWindow, Apply: developmentWindow},
		{Name: RuleMethodDisagreement, Apply: methodDisagreement},
	}
}

func speciesReliability(in Input, _ Config) Outcome {
	if in.Profile.WellStudied() {
		return Outcome{Fired: true, Delta: 5}
	}
	return Outcome{
		Fired:   true,
		Delta:   -3,
		Level:   LevelInfo,
		Message: fmt.Sprintf("Limited validation data for %s", in.Profile.ID),
	}
}

func stageSuitability(in Input, _ Config) Outcome {
	switch in.Stage {
	case species.FirstInstar:
		return Outcome{Fired: true, Delta: -5, Level: LevelInfo,
			Message: "1st instar development is short; small timing errors have a large relative effect"}
	case species.Pupa:
		return Outcome{Fired: true, Delta: -8, Level: LevelWarning,
			Message: "Pupal stage spans a long interval; estimate precision is reduced"}
	}
	return Outcome{}
}

// temperatureRange costs 10 points plus one per degree outside the validated range, up to 20
func temperatureRange(in Input, _ Config) Outcome {
	dist := in.Profile.ValidatedRangeC.Distance(in.AmbientC)
	if dist == 0 {
		return Outcome{}
	}
	return Outcome{
		Fired: true,
		Delta: -(10 + math.Min(10, dist)),
		Level: LevelWarning,
		Message: fmt.Sprintf("Temperature %.1f°C outside validated range %.0f-%.0f°C for %s",
			in.AmbientC, in.Profile.ValidatedRangeC.Min, in.Profile.ValidatedRangeC.Max, in.Profile.ID),
	}
}

func missingLength(in Input, _ Config) Outcome {
	if in.LengthMM != nil || !in.Method.UsesLength() {
		return Outcome{}
	}
	return Outcome{Fired: true, Delta: -5, Level: LevelInfo,
		Message: fmt.Sprintf("No specimen length supplied; %s fell back to the stage midpoint", in.Method)}
}

// lengthRange rewards a typical length with +5 and costs 8 points for an atypical one
func lengthRange(in Input, _ Config) Outcome {
	if in.LengthMM == nil {
		return Outcome{}
	}
	r, ok := in.Profile.Length(in.Stage)
	if !ok {
		return Outcome{}
	}
	l := *in.LengthMM
	if l >= 0.5*r.Min && l <= 1.5*r.Max {
		return Outcome{Fired: true, Delta: 5}
	}
	return Outcome{Fired: true, Delta: -8, Level: LevelWarning,
		Message: fmt.Sprintf("Length %.1fmm is atypical for %s (expected %.1f-%.1fmm)", l, in.Stage, r.Min, r.Max)}
}

// developmentWindow flags estimates outside the stage's documented span, widened by
// the species' colonization delay.
func developmentWindow(in Input, _ Config) Outcome {
	w, ok := StageWindowDays[in.Stage]
	if !ok {
		return Outcome{}
	}
	lower := 0.1 * w.Min
	upper := 2*w.Max + in.Profile.ColonizationWindow.Max
	if in.PMIDays >= lower && in.PMIDays <= upper {
		return Outcome{}
	}
	return Outcome{Fired: true, Delta: -15, Level: LevelWarning,
		Message: fmt.Sprintf("PMI %.1f days outside expected window %.1f-%.1f days for %s %s",
			in.PMIDays, lower, upper, in.Profile.ID, in.Stage)}
}

func methodDisagreement(in Input, cfg Config) Outcome {
	if in.MethodCV == nil || *in.MethodCV <= cfg.CVThreshold {
		return Outcome{}
	}
	return Outcome{Fired: true, Delta: -10, Level: LevelWarning,
		Message: fmt.Sprintf("Methods disagree (CV %.1f%% > %.0f%%)", *in.MethodCV, cfg.CVThreshold)}
}
