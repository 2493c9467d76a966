package consensus

import (
	"pmiengine/internal/estimator"
)

// Config holds the conflict thresholds and the per-specimen estimate options. The
// defaults reproduce the documented fixed thresholds.
type Config struct {
	// Range in days at which a pmi_range_conflict becomes moderate (inclusive)
	ModerateRangeDays float64 `json:"moderate_range_days" validate:"gte=0"`
	// Range in days above which a pmi_range_conflict is severe
	SevereRangeDays float64 `json:"severe_range_days" validate:"gtefield=ModerateRangeDays"`
	// Distinct species tolerated before species_disagreement
	SpeciesDiversityLimit int `json:"species_diversity_limit" validate:"gte=1"`
	// Distinct stages tolerated before stage_disagreement
	StageDiversityLimit int `json:"stage_diversity_limit" validate:"gte=1"`

	LowQualityScore float64 `json:"low_quality_score" validate:"gte=0,lte=100"`
	HighCVPercent   float64 `json:"high_cv_percent" validate:"gt=0"`

	Estimate estimator.Options `json:"-"`
}

// DefaultConfig returns range 1-3 days moderate, above 3 severe, more than one species
// or more than two stages moderate.
func DefaultConfig() Config {
	return Config{
		ModerateRangeDays:     1,
		SevereRangeDays:       3,
		SpeciesDiversityLimit: 1,
		StageDiversityLimit:   2,
		LowQualityScore:       70,
		HighCVPercent:         30,
	}
}
