package consensus

import (
	"encoding/json"
	"fmt"

	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/specimen"
)

// SpecimenEntry is one element of the report's specimens array
type SpecimenEntry struct {
	SpecimenData       specimen.Record  `json:"specimen_data"`
	PMIDays            float64          `json:"pmi_days"`
	PMIHours           float64          `json:"pmi_hours"`
	ConfidenceLow      float64          `json:"confidence_low"`
	ConfidenceHigh     float64          `json:"confidence_high"`
	QualityScore       float64          `json:"quality_score"`
	DataQuality        pmi.QualityLabel `json:"data_quality"`
	ValidationWarnings []string         `json:"validation_warnings"`
}

// Report is the consensus JSON document. Field names are consumed verbatim by
// report generators; excluded_specimens only appears when a specimen failed.
type Report struct {
	AnalysisTimestamp  core.Timestamp   `json:"analysis_timestamp"`
	SpecimenCount      int              `json:"specimen_count"`
	Specimens          []SpecimenEntry  `json:"specimens"`
	ConsensusPMI       Consensus        `json:"consensus_pmi"`
	StatisticalSummary Summary          `json:"statistical_summary"`
	ConflictAnalysis   ConflictAnalysis `json:"conflict_analysis"`
	Recommendations    []string         `json:"recommendations"`
	OverallQuality     pmi.QualityLabel `json:"overall_quality"`
	ExcludedSpecimens  []Excluded       `json:"excluded_specimens,omitempty"`
}

// NewReport renders a result; specimen_count counts the specimens that produced an estimate
func NewReport(r *Result) Report {
	rep := Report{
		AnalysisTimestamp:  r.Timestamp,
		SpecimenCount:      len(r.Specimens),
		Specimens:          make([]SpecimenEntry, len(r.Specimens)),
		ConsensusPMI:       r.Consensus,
		StatisticalSummary: r.Summary,
		ConflictAnalysis:   r.Conflicts,
		Recommendations:    r.Recommendations,
		OverallQuality:     r.OverallQuality,
		ExcludedSpecimens:  r.Excluded,
	}
	for i, s := range r.Specimens {
		warnings := s.Estimate.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		rep.Specimens[i] = SpecimenEntry{
			SpecimenData:       s.Record,
			PMIDays:            s.Estimate.Days(),
			PMIHours:           s.Estimate.Hours,
			ConfidenceLow:      s.Estimate.LowDays(),
			ConfidenceHigh:     s.Estimate.HighDays(),
			QualityScore:       s.Estimate.QualityScore,
			DataQuality:        s.Estimate.Quality,
			ValidationWarnings: warnings,
		}
	}
	return rep
}

// JSON renders the report indented by two spaces
func (r Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode consensus report: %w", err)
	}
	return data, nil
}

// ParseReport decodes a report produced by JSON
func ParseReport(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to decode consensus report: %w", err)
	}
	return r, nil
}
