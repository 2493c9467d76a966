package consensus

import (
	"github.com/montanaflynn/stats"

	"pmiengine/domain/species"
)

// Summary is the statistical_summary block
type Summary struct {
	SpecimenCount    int     `json:"specimen_count"`
	PMIMean          float64 `json:"pmi_mean"`
	PMIMedian        float64 `json:"pmi_median"`
	PMIStdDev        float64 `json:"pmi_std_dev"`
	PMIMin           float64 `json:"pmi_min"`
	PMIMax           float64 `json:"pmi_max"`
	PMIRange         float64 `json:"pmi_range"`
	QualityMean      float64 `json:"quality_mean"`
	QualityMin       float64 `json:"quality_min"`
	QualityMax       float64 `json:"quality_max"`
	SpeciesDiversity int     `json:"species_diversity"`
	StageDiversity   int     `json:"stage_diversity"`
	PMICV            float64 `json:"pmi_cv"`
}

// summarize needs at least one result. The standard deviation is the sample
// (n-1) deviation and is 0 for a single specimen.
func summarize(results []SpecimenResult) Summary {
	days := make(stats.Float64Data, len(results))
	quality := make(stats.Float64Data, len(results))
	speciesSet := map[string]struct{}{}
	stageSet := map[species.Stage]struct{}{}
	for i, r := range results {
		days[i] = r.Estimate.Days()
		quality[i] = r.Estimate.QualityScore
		speciesSet[r.Record.Species] = struct{}{}
		stageSet[r.Record.Stage] = struct{}{}
	}

	s := Summary{
		SpecimenCount:    len(results),
		SpeciesDiversity: len(speciesSet),
		StageDiversity:   len(stageSet),
	}
	s.PMIMean, _ = days.Mean()
	s.PMIMedian, _ = days.Median()
	s.PMIMin, _ = days.Min()
	s.PMIMax, _ = days.Max()
	s.PMIRange = s.PMIMax - s.PMIMin
	if len(days) > 1 {
		s.PMIStdDev, _ = days.StandardDeviationSample()
	}
	s.QualityMean, _ = quality.Mean()
	s.QualityMin, _ = quality.Min()
	s.QualityMax, _ = quality.Max()
	if s.PMIMean > 0 {
		s.PMICV = s.PMIStdDev / s.PMIMean * 100
	}
	return s
}
