package consensus

import (
	"fmt"
	"sort"
	"strings"

	"pmiengine/domain/species"
)

// ConflictType names a kind of disagreement between specimens
type ConflictType string

const (
	ConflictPMIRange ConflictType = "pmi_range_conflict"
	ConflictSpecies  ConflictType = "species_disagreement"
	ConflictStage    ConflictType = "stage_disagreement"
)

// Severity of a conflict; ordered none < moderate < severe
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

func (s Severity) rank() int {
	switch s {
	case SeveritySevere:
		return 2
	case SeverityModerate:
		return 1
	}
	return 0
}

// ConflictDetail is one triggered conflict
type ConflictDetail struct {
	Type        ConflictType `json:"type"`
	Description string       `json:"description"`
	Severity    Severity     `json:"severity"`
}

// ConflictAnalysis is the conflict_analysis block
type ConflictAnalysis struct {
	HasConflicts bool             `json:"has_conflicts"`
	Types        []ConflictType   `json:"conflict_types"`
	Details      []ConflictDetail `json:"conflict_details"`
	Severity     Severity         `json:"severity"`
}

// Has reports whether a conflict type was triggered
func (c ConflictAnalysis) Has(t ConflictType) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// RangeSeverity classifies a PMI range: below the moderate threshold none, up to and
// including the severe threshold moderate, above it severe.
func RangeSeverity(rangeDays float64, cfg Config) Severity {
	switch {
	case rangeDays < cfg.ModerateRangeDays:
		return SeverityNone
	case rangeDays <= cfg.SevereRangeDays:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// analyzeConflicts depends only on the PMI range and the species and stage sets
func analyzeConflicts(results []SpecimenResult, summary Summary, cfg Config) ConflictAnalysis {
	ca := ConflictAnalysis{
		Types:    []ConflictType{},
		Details:  []ConflictDetail{},
		Severity: SeverityNone,
	}
	add := func(t ConflictType, sev Severity, desc string) {
		ca.Types = append(ca.Types, t)
		ca.Details = append(ca.Details, ConflictDetail{Type: t, Description: desc, Severity: sev})
		if sev.rank() > ca.Severity.rank() {
			ca.Severity = sev
		}
	}

	if sev := RangeSeverity(summary.PMIRange, cfg); sev != SeverityNone {
		add(ConflictPMIRange, sev, fmt.Sprintf("PMI estimates vary by %.1f days", summary.PMIRange))
	}
	if summary.SpeciesDiversity > cfg.SpeciesDiversityLimit {
		add(ConflictSpecies, SeverityModerate,
			fmt.Sprintf("Multiple species present: %s", strings.Join(distinctSpecies(results), ", ")))
	}
	if summary.StageDiversity > cfg.StageDiversityLimit {
		add(ConflictStage, SeverityModerate,
			fmt.Sprintf("Development stages span %s", strings.Join(distinctStages(results), ", ")))
	}

	ca.HasConflicts = len(ca.Types) > 0
	return ca
}

func distinctSpecies(results []SpecimenResult) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range results {
		if !seen[r.Record.Species] {
			seen[r.Record.Species] = true
			out = append(out, r.Record.Species)
		}
	}
	sort.Strings(out)
	return out
}

func distinctStages(results []SpecimenResult) []string {
	seen := map[species.Stage]bool{}
	var stages []species.Stage
	for _, r := range results {
		if !seen[r.Record.Stage] {
			seen[r.Record.Stage] = true
			stages = append(stages, r.Record.Stage)
		}
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Index() < stages[j].Index() })
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
