package uncertainty

import (
	"fmt"
	"strings"

	"pmiengine/domain/pmi"
)

// Composite component keys and weights
const (
	ComponentQuality   = "quality"
	ComponentAgreement = "method_agreement"
	ComponentTightness = "interval_tightness"
	ComponentKnown     = "known_cases"
)

var componentWeights = []struct {
	key    string
	weight float64
}{
	{ComponentQuality, 0.30},
	{ComponentAgreement, 0.25},
	{ComponentTightness, 0.20},
	{ComponentKnown, 0.25},
}

// Recommendation thresholds
const (
	highRelativeUncertainty = 0.3
	lowAgreement            = 70
	highKnownCaseError      = 0.2
)

// Agreement is the cross-method evidence the composite score reads
type Agreement struct {
	CVPercent      float64  `json:"cv_percent"`
	OutlierMethods []string `json:"outlier_methods"`
	// Reliabilities are per-method prior reliabilities in [0, 1]
	Reliabilities []float64 `json:"reliabilities"`
}

// Confidence starts at 100 and loses points for dispersion, outliers and a low
// average method reliability.
func (a Agreement) Confidence() float64 {
	confidence := 100.0
	cv := a.CVPercent / 100
	switch {
	case cv > 0.5:
		confidence -= 30
	case cv > 0.3:
		confidence -= 15
	case cv > 0.1:
		confidence -= 5
	}
	confidence -= 10 * float64(len(a.OutlierMethods))

	if len(a.Reliabilities) > 0 {
		var sum float64
		for _, r := range a.Reliabilities {
			sum += r * 100
		}
		avg := sum / float64(len(a.Reliabilities))
		switch {
		case avg < 60:
			confidence -= 20
		case avg < 80:
			confidence -= 10
		}
	}
	return pmi.ClampScore(confidence)
}

// Parts are the analyses available for a composite score; nil or empty parts are skipped
type Parts struct {
	QualityScore *float64
	Agreement    *Agreement
	Analytical   *Analytical
	MonteCarlo   *MonteCarlo
	KnownCases   []KnownCaseResult
}

// CompositeScore is the combined validation confidence
type CompositeScore struct {
	Score           float64            `json:"score"`
	Label           pmi.QualityLabel   `json:"label"`
	Components      map[string]float64 `json:"components"`
	Recommendations []string           `json:"recommendations"`
}

// Composite weights the available component scores and renormalises the weights
// over what is present. With no parts the score is 0.
func Composite(p Parts) CompositeScore {
	scores := map[string]float64{}
	if p.QualityScore != nil {
		scores[ComponentQuality] = pmi.ClampScore(*p.QualityScore)
	}
	if p.Agreement != nil {
		scores[ComponentAgreement] = p.Agreement.Confidence()
	}
	if p.MonteCarlo != nil {
		if t, ok := tightness(*p.MonteCarlo); ok {
			scores[ComponentTightness] = t
		}
	}
	if len(p.KnownCases) > 0 {
		scores[ComponentKnown] = knownCaseScore(p.KnownCases)
	}

	var total, weightSum float64
	for _, cw := range componentWeights {
		s, ok := scores[cw.key]
		if !ok {
			continue
		}
		total += cw.weight * s
		weightSum += cw.weight
	}
	score := 0.0
	if weightSum > 0 {
		score = pmi.ClampScore(total / weightSum)
	}

	return CompositeScore{
		Score:           score,
		Label:           pmi.LabelFor(score),
		Components:      scores,
		Recommendations: recommendations(p),
	}
}

// tightness maps the relative width of the 95% interval onto 0-100; a width equal
// to the mean scores 50.
func tightness(mc MonteCarlo) (float64, bool) {
	iv, ok := mc.Interval95()
	if !ok || mc.MeanDays <= 0 {
		return 0, false
	}
	rel := iv.Width() / mc.MeanDays
	return pmi.ClampScore(100 * (1 - rel/2)), true
}

func knownCaseScore(cases []KnownCaseResult) float64 {
	var errSum, within float64
	for _, c := range cases {
		errSum += c.RelativeError
		if c.WithinInterval {
			within++
		}
	}
	n := float64(len(cases))
	return pmi.ClampScore(100 - (errSum/n)*100 + (within/n)*20)
}

func recommendations(p Parts) []string {
	recs := []string{}
	if p.Analytical != nil && p.Analytical.RelativeUncertainty > highRelativeUncertainty {
		recs = append(recs, "High uncertainty detected - consider additional temperature measurements")
	}
	if p.Agreement != nil {
		if p.Agreement.Confidence() < lowAgreement {
			recs = append(recs, "Low method agreement - interpret results with caution")
		}
		if len(p.Agreement.OutlierMethods) > 0 {
			recs = append(recs, fmt.Sprintf("Outlier methods detected: %s", strings.Join(p.Agreement.OutlierMethods, ", ")))
		}
	}
	for _, c := range p.KnownCases {
		if c.RelativeError > highKnownCaseError {
			recs = append(recs, "High error in known case validation - method may be less reliable")
			break
		}
	}
	if p.MonteCarlo != nil {
		switch {
		case p.MonteCarlo.Partial:
			recs = append(recs, "Monte Carlo simulation was interrupted - interval precision is reduced")
		case !p.MonteCarlo.Converged:
			recs = append(recs, "Monte Carlo simulation did not converge - increase the trial budget")
		}
	}
	return recs
}
