// Package quality scores a single PMI estimate with an ordered rule list.
package quality

import (
	"fmt"

	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
)

// Warning levels
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
)

// DefaultCVThreshold is the inter-method CV (%) above which methods are said to disagree
const DefaultCVThreshold = 35.0

// Input carries everything the rules look at
type Input struct {
	Profile  *species.Profile
	Stage    species.Stage
	LengthMM *float64
	Method   pmi.Method
	AmbientC float64
	PMIDays  float64

	// MethodCV is set when several methods were compared for this specimen
	MethodCV *float64
}

// Outcome is what one rule did to the score
type Outcome struct {
	Fired   bool
	Delta   float64
	Level   string
	Message string
}

// Rule is a named (predicate, penalty, message) step
type Rule struct {
	Name  string
	Apply func(in Input, cfg Config) Outcome
}

// Config tunes the rules
type Config struct {
	CVThreshold float64
}

// DefaultConfig returns the documented thresholds
func DefaultConfig() Config {
	return Config{CVThreshold: DefaultCVThreshold}
}

// Result is the scored outcome
type Result struct {
	Score    float64          `json:"quality_score"`
	Label    pmi.QualityLabel `json:"data_quality"`
	Warnings []string         `json:"validation_warnings"`
	Fired    []string         `json:"rules_fired"`
}

// Scorer evaluates the rule list in order
type Scorer struct {
	rules []Rule
	cfg   Config
}

// NewScorer creates a scorer with the standard rule list
func NewScorer(cfg Config) *Scorer {
	if cfg.CVThreshold <= 0 {
		cfg.CVThreshold = DefaultCVThreshold
	}
	return &Scorer{rules: Rules(), cfg: cfg}
}

// Score starts at 100 and applies every rule in order. The running score is
// clamped to [0, 100] after each rule, so a bonus never lifts it past 100.
func (s *Scorer) Score(in Input) Result {
	res := Result{Score: 100, Warnings: []string{}}
	for _, rule := range s.rules {
		out := rule.Apply(in, s.cfg)
		if !out.Fired {
			continue
		}
		res.Score = pmi.ClampScore(res.Score + out.Delta)
		res.Fired = append(res.Fired, rule.Name)
		if out.Message != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", out.Level, out.Message))
		}
	}
	res.Label = pmi.LabelFor(res.Score)
	return res
}
