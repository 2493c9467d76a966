package consensus

import "fmt"

// recommendationInput is what the recommendation rules look at
type recommendationInput struct {
	results   []SpecimenResult
	excluded  []Excluded
	summary   Summary
	conflicts ConflictAnalysis
	cfg       Config
}

type recommendationRule struct {
	name string
	emit func(in recommendationInput) []string
}

// recommendationRules are evaluated in order; each may contribute several lines
var recommendationRules = []recommendationRule{
	{"species_conflict", func(in recommendationInput) []string {
		if !in.conflicts.Has(ConflictSpecies) {
			return nil
		}
		return []string{
			"Multiple species present - verify species identifications with morphological keys",
			"Consider separate PMI estimates for each species",
		}
	}},
	{"stage_conflict", func(in recommendationInput) []string {
		if !in.conflicts.Has(ConflictStage) {
			return nil
		}
		return []string{
			"Inconsistent development stages suggest complex taphonomic history",
			"Investigate environmental factors that may affect development rates",
		}
	}},
	{"range_conflict", func(in recommendationInput) []string {
		if !in.conflicts.Has(ConflictPMIRange) {
			return nil
		}
		return []string{
			fmt.Sprintf("Large PMI range (%.1f days) - prioritize highest quality specimens", in.summary.PMIRange),
			"Consider microenvironmental differences within the scene",
		}
	}},
	{"small_sample", func(in recommendationInput) []string {
		if in.summary.SpecimenCount >= 3 {
			return nil
		}
		return []string{"Limited sample size - collect additional specimens if possible"}
	}},
	{"high_variability", func(in recommendationInput) []string {
		if in.summary.PMICV <= in.cfg.HighCVPercent {
			return nil
		}
		return []string{fmt.Sprintf("High variability in PMI estimates (CV: %.1f%%) - exercise caution in interpretation", in.summary.PMICV)}
	}},
	{"low_quality", func(in recommendationInput) []string {
		n := 0
		for _, r := range in.results {
			if r.Estimate.QualityScore < in.cfg.LowQualityScore {
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return []string{fmt.Sprintf("%d specimen(s) have low quality scores - review validation warnings", n)}
	}},
	{"species_diversity", func(in recommendationInput) []string {
		if in.summary.SpeciesDiversity <= 2 {
			return nil
		}
		return []string{"High species diversity may indicate extended PMI or multiple colonization events"}
	}},
	{"excluded", func(in recommendationInput) []string {
		if len(in.excluded) == 0 {
			return nil
		}
		return []string{fmt.Sprintf("%d specimen(s) could not be estimated and were excluded - correct their input and rerun", len(in.excluded))}
	}},
}

func recommend(in recommendationInput) []string {
	out := []string{}
	for _, rule := range recommendationRules {
		out = append(out, rule.emit(in)...)
	}
	return out
}
