// Package comparator runs every development model on one specimen and measures how
// well they agree.
package comparator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"pmiengine/adapters/devmodels"
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal/quality"
	"pmiengine/internal/uncertainty"
	"pmiengine/internal/workers"
)

// AgreementLevel bands the coefficient of variation across methods
type AgreementLevel string

const (
	AgreementExcellent AgreementLevel = "excellent"
	AgreementGood      AgreementLevel = "good"
	AgreementModerate  AgreementLevel = "moderate"
	AgreementPoor      AgreementLevel = "poor"
)

// AgreementFor bands CV (%): excellent < 10, good < 20, moderate < 35, poor otherwise
func AgreementFor(cvPercent float64) AgreementLevel {
	switch {
	case cvPercent < 10:
		return AgreementExcellent
	case cvPercent < 20:
		return AgreementGood
	case cvPercent < 35:
		return AgreementModerate
	default:
		return AgreementPoor
	}
}

// bandFactors are each method's relative half-width; narrower bands weigh more
var bandFactors = [pmi.MethodCount]float64{
	pmi.ADDStandard:      0.20,
	pmi.ADDOptimistic:    0.15,
	pmi.ADDConservative:  0.25,
	pmi.ADHMethod:        0.18,
	pmi.IsomegalenMethod: 0.22,
	pmi.ThermalSummation: 0.25,
	pmi.DevelopmentRate:  0.20,
}

// reliabilities are prior method reliabilities in [0, 1]
var reliabilities = [pmi.MethodCount]float64{
	pmi.ADDStandard:      1.0,
	pmi.ADDOptimistic:    0.7,
	pmi.ADDConservative:  0.7,
	pmi.ADHMethod:        0.9,
	pmi.IsomegalenMethod: 0.6,
	pmi.ThermalSummation: 0.8,
	pmi.DevelopmentRate:  0.8,
}

// BandFactor returns the relative interval half-width of a method
func BandFactor(m pmi.Method) float64 {
	if !m.Valid() {
		return 0
	}
	return bandFactors[m]
}

// Reliability returns the prior reliability of a method
func Reliability(m pmi.Method) float64 {
	if !m.Valid() {
		return 0
	}
	return reliabilities[m]
}

// MethodEstimate is one method's scored estimate for the specimen. The interval is
// the method's own band.
type MethodEstimate struct {
	pmi.Estimate
	Weight      float64 `json:"weight"`
	Reliability float64 `json:"reliability"`
}

// Assessment summarises how far the comparison can be trusted as a whole.
// Every component is on a 0-100 scale.
type Assessment struct {
	Overall                float64 `json:"overall_reliability"`
	AverageMethod          float64 `json:"average_method_reliability"`
	TemperatureSuitability float64 `json:"temperature_suitability"`
	MethodDiversity        float64 `json:"method_diversity_score"`
	MethodCount            int     `json:"method_count"`
}

// Recommendation thresholds
const (
	lowReliability         = 60.0
	lowTemperatureSuitable = 70.0
	reliabilitySpread      = 30.0
	wideRangeOfMean        = 0.5
)

// MultiMethodResult holds per-method estimates in method order and their agreement
type MultiMethodResult struct {
	SpecimenID       core.SpecimenID  `json:"specimen_id"`
	Estimates        []MethodEstimate `json:"estimates"`
	MeanDays         float64          `json:"mean_days"`
	StdDevDays       float64          `json:"std_dev_days"`
	CVPercent        float64          `json:"cv_percent"`
	RangeDays        float64          `json:"range_days"`
	Agreement        AgreementLevel   `json:"agreement"`
	OutlierMethods   []pmi.Method     `json:"outlier_methods"`
	WeightedDays     float64          `json:"weighted_pmi_days"`
	WeightedLowDays  float64          `json:"weighted_confidence_low"`
	WeightedHighDays float64          `json:"weighted_confidence_high"`
	Reliability      Assessment       `json:"reliability_assessment"`
	Recommendations  []string         `json:"recommendations"`
}

// Evidence converts the comparison into the composite score's agreement input
func (r MultiMethodResult) Evidence() uncertainty.Agreement {
	a := uncertainty.Agreement{CVPercent: r.CVPercent, OutlierMethods: []string{}}
	for _, m := range r.OutlierMethods {
		a.OutlierMethods = append(a.OutlierMethods, m.String())
	}
	for _, e := range r.Estimates {
		a.Reliabilities = append(a.Reliabilities, Reliability(e.Method))
	}
	return a
}

// Comparator is safe for concurrent use
type Comparator struct {
	table  *species.Table
	scorer *quality.Scorer
	pool   *workers.Pool
}

// New creates a comparator. A nil scorer uses the default thresholds and a nil
// pool runs methods sequentially.
func New(table *species.Table, scorer *quality.Scorer, pool *workers.Pool) *Comparator {
	if scorer == nil {
		scorer = quality.NewScorer(quality.DefaultConfig())
	}
	if pool == nil {
		pool = workers.NewPool(1)
	}
	return &Comparator{table: table, scorer: scorer, pool: pool}
}

// Compare runs all methods. It fails only when the input itself is invalid; any
// amount of disagreement is reported, never rejected.
func (c *Comparator) Compare(ctx context.Context, rec specimen.Record, temp specimen.TemperatureContext) (MultiMethodResult, error) {
	profile, err := c.table.Lookup(rec.Species)
	if err != nil {
		return MultiMethodResult{}, err
	}
	teff := profile.EffectiveTemp(temp.AmbientC)
	in := devmodels.Input{
		Profile:       profile,
		Stage:         rec.Stage,
		LengthMM:      rec.LengthMM,
		EffectiveTemp: teff,
	}

	results, err := workers.Map(ctx, c.pool, pmi.AllMethods(), func(_ context.Context, _ int, m pmi.Method) (devmodels.Result, error) {
		return devmodels.Compute(m, in)
	})
	if err != nil {
		return MultiMethodResult{}, err
	}

	out := MultiMethodResult{SpecimenID: rec.SpecimenID, OutlierMethods: []pmi.Method{}}
	days := make([]float64, len(results))
	lows := make([]float64, len(results))
	highs := make([]float64, len(results))
	weights := make([]float64, len(results))
	var weightSum float64
	for i, r := range results {
		m := pmi.Method(i)
		days[i] = r.Days()
		lows[i], highs[i] = pmi.Band(days[i], bandFactors[m])
		weights[i] = 1 / bandFactors[m]
		weightSum += weights[i]
	}
	for i := range weights {
		weights[i] /= weightSum
	}

	// population deviation over the method set
	out.MeanDays, out.StdDevDays = stat.PopMeanStdDev(days, nil)
	if out.MeanDays > 0 {
		out.CVPercent = out.StdDevDays / out.MeanDays * 100
	}
	out.Agreement = AgreementFor(out.CVPercent)
	out.WeightedDays = stat.Mean(days, weights)
	out.WeightedLowDays = stat.Mean(lows, weights)
	out.WeightedHighDays = stat.Mean(highs, weights)

	sorted := append([]float64(nil), days...)
	sort.Float64s(sorted)
	out.RangeDays = sorted[len(sorted)-1] - sorted[0]
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	for _, i := range outliers(days, median, out.StdDevDays) {
		out.OutlierMethods = append(out.OutlierMethods, pmi.Method(i))
	}

	cv := out.CVPercent
	out.Estimates = make([]MethodEstimate, len(results))
	for i, r := range results {
		m := pmi.Method(i)
		q := c.scorer.Score(quality.Input{
			Profile:  profile,
			Stage:    rec.Stage,
			LengthMM: rec.LengthMM,
			Method:   m,
			AmbientC: temp.AmbientC,
			PMIDays:  days[i],
			MethodCV: &cv,
		})
		out.Estimates[i] = MethodEstimate{
			Estimate: pmi.Estimate{
				Method:         m,
				Hours:          r.Hours,
				LowHours:       lows[i] * pmi.HoursPerDay,
				HighHours:      highs[i] * pmi.HoursPerDay,
				QualityScore:   q.Score,
				Quality:        q.Label,
				Warnings:       q.Warnings,
				RequiredUnits:  r.RequiredUnits,
				Unit:           r.Unit,
				EffectiveTempC: teff,
				IntervalSource: pmi.IntervalFixedBand,
			},
			Weight:      weights[i],
			Reliability: reliabilities[m],
		}
	}

	out.Reliability = assess(out.Estimates, profile, temp.AmbientC)
	out.Recommendations = recommend(out)
	return out, nil
}

// assess averages the method priors with how close the ambient temperature sits to
// base+15 °C and a bonus of 5 per method up to 20.
func assess(estimates []MethodEstimate, profile *species.Profile, ambientC float64) Assessment {
	r := Assessment{MethodCount: len(estimates)}
	if len(estimates) == 0 {
		return r
	}
	seen := make(map[pmi.Method]struct{}, len(estimates))
	var sum float64
	for _, e := range estimates {
		sum += e.Reliability * 100
		seen[e.Method] = struct{}{}
	}
	r.AverageMethod = sum / float64(len(estimates))
	r.TemperatureSuitability = pmi.ClampScore(100 - math.Abs(ambientC-(profile.BaseTempC+15))*2)
	r.MethodDiversity = math.Min(20, float64(len(seen))*5)
	r.Overall = (r.AverageMethod + r.TemperatureSuitability + r.MethodDiversity) / 3
	return r
}

func recommend(res MultiMethodResult) []string {
	recs := []string{}
	switch res.Agreement {
	case AgreementPoor:
		recs = append(recs,
			fmt.Sprintf("Poor method agreement (CV: %.1f%%) - interpret results with caution", res.CVPercent),
			"Consider environmental factors that may affect different methods differently")
	case AgreementExcellent:
		recs = append(recs, fmt.Sprintf("Excellent method agreement (CV: %.1f%%) - high confidence in results", res.CVPercent))
	}

	if res.Reliability.Overall < lowReliability {
		recs = append(recs, "Low overall reliability - collect additional data if possible")
	}
	if res.Reliability.TemperatureSuitability < lowTemperatureSuitable {
		recs = append(recs, "Temperature conditions are suboptimal for accurate PMI estimation")
	}

	if len(res.Estimates) > 0 {
		best, worst := res.Estimates[0], res.Estimates[0]
		for _, e := range res.Estimates[1:] {
			if e.Reliability > best.Reliability {
				best = e
			}
			if e.Reliability < worst.Reliability {
				worst = e
			}
		}
		if (best.Reliability-worst.Reliability)*100 > reliabilitySpread {
			recs = append(recs, fmt.Sprintf("Prioritize %s method (reliability: %.0f/100)", best.Method, best.Reliability*100))
		}
	}

	if res.RangeDays > res.MeanDays*wideRangeOfMean {
		recs = append(recs, fmt.Sprintf("Large PMI range (%.1f days) indicates significant uncertainty", res.RangeDays))
	}
	return recs
}

// outliers returns the indexes lying more than two standard deviations from the median
func outliers(values []float64, median, sd float64) []int {
	var idx []int
	for i, v := range values {
		if math.Abs(v-median) > 2*sd {
			idx = append(idx, i)
		}
	}
	return idx
}
