// Package consensus reconciles the PMI estimates of several specimens from one scene
// into a quality-weighted consensus with conflict detection.
package consensus

import (
	"context"
	"fmt"
	"time"

	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal"
	apperrors "pmiengine/internal/errors"
	"pmiengine/internal/estimator"
	"pmiengine/internal/workers"
)

// Consensus methods
const (
	MethodQualityWeighted = "quality_weighted_average"
	MethodSingleSpecimen  = "single_specimen"
)

// SpecimenResult pairs a validated record with its estimate
type SpecimenResult struct {
	Record   specimen.Record
	Estimate pmi.Estimate
}

// Excluded is a specimen that failed validation or estimation
type Excluded struct {
	Position   int    `json:"position"`
	SpecimenID string `json:"specimen_id,omitempty"`
	Code       string `json:"code"`
	Error      string `json:"error"`
}

// Consensus is the consensus_pmi block; confidence bounds are in days
type Consensus struct {
	Method         string  `json:"method"`
	PMIDays        float64 `json:"pmi_days"`
	PMIHours       float64 `json:"pmi_hours"`
	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
	Basis          string  `json:"basis"`
}

// Result is the full outcome of one batch
type Result struct {
	RunID           core.RunID
	Timestamp       core.Timestamp
	Fingerprint     core.BatchFingerprint
	Specimens       []SpecimenResult
	Excluded        []Excluded
	Summary         Summary
	Consensus       Consensus
	Conflicts       ConflictAnalysis
	Recommendations []string
	OverallScore    float64
	OverallQuality  pmi.QualityLabel
}

// Engine is stateless apart from its read-only collaborators
type Engine struct {
	est    *estimator.Estimator
	table  *species.Table
	pool   *workers.Pool
	cfg    Config
	clock  core.Clock
	logger *internal.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock pins the analysis timestamp
func WithClock(c core.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) EngineOption {
	return func(e *Engine) { e.logger = l.With("ConsensusEngine") }
}

// NewEngine creates a consensus engine. A nil pool estimates specimens sequentially.
func NewEngine(est *estimator.Estimator, pool *workers.Pool, cfg Config, opts ...EngineOption) *Engine {
	if pool == nil {
		pool = workers.NewPool(1)
	}
	e := &Engine{
		est:    est,
		table:  est.Table(),
		pool:   pool,
		cfg:    cfg,
		clock:  core.SystemClock,
		logger: internal.DefaultLogger.With("ConsensusEngine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's thresholds
func (e *Engine) Config() Config {
	return e.cfg
}

// Analyze estimates every specimen, excludes the ones that fail and builds the
// consensus over the rest. Each specimen needs an ambient temperature, either its
// own or the batch's.
func (e *Engine) Analyze(ctx context.Context, batch specimen.Batch) (*Result, error) {
	start := time.Now()
	if len(batch.Specimens) == 0 {
		return nil, core.NewInsufficientDataError("empty specimen batch")
	}

	opts := e.cfg.Estimate
	if batch.Method != "" {
		m, err := pmi.ParseMethod(batch.Method)
		if err != nil {
			return nil, err
		}
		opts.Method = m
	}

	outcomes := workers.MapSettled(ctx, e.pool, batch.Specimens, func(ctx context.Context, i int, in specimen.Input) (SpecimenResult, error) {
		rec, err := specimen.New(in, i, e.table)
		if err != nil {
			return SpecimenResult{}, err
		}
		temp, ok := temperatureFor(batch, i)
		if !ok {
			return SpecimenResult{Record: rec}, core.NewInputValidationError("ambient_c", "no temperature for specimen or batch")
		}
		est, err := e.est.Estimate(ctx, rec, temp, opts)
		if err != nil {
			return SpecimenResult{Record: rec}, err
		}
		return SpecimenResult{Record: rec, Estimate: est}, nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       core.NewRunID(),
		Timestamp:   e.clock(),
		Fingerprint: batch.Fingerprint(),
	}
	for i, oc := range outcomes {
		if oc.Err != nil {
			ex := Excluded{
				Position:   i,
				SpecimenID: oc.Value.Record.SpecimenID.String(),
				Code:       apperrors.GetCode(apperrors.FromDomain(oc.Err)),
				Error:      oc.Err.Error(),
			}
			if ex.SpecimenID == "" {
				ex.SpecimenID = batch.Specimens[i].SpecimenID
			}
			e.logger.Warn("specimen %d excluded: %v", i, oc.Err)
			res.Excluded = append(res.Excluded, ex)
			continue
		}
		res.Specimens = append(res.Specimens, oc.Value)
	}
	if len(res.Specimens) == 0 {
		return nil, core.NewInsufficientDataError(fmt.Sprintf("all %d specimens failed validation", len(batch.Specimens)))
	}

	res.Summary = summarize(res.Specimens)
	res.Consensus = buildConsensus(res.Specimens)
	res.Conflicts = analyzeConflicts(res.Specimens, res.Summary, e.cfg)
	res.Recommendations = recommend(recommendationInput{
		results:   res.Specimens,
		excluded:  res.Excluded,
		summary:   res.Summary,
		conflicts: res.Conflicts,
		cfg:       e.cfg,
	})
	res.OverallScore = overallScore(res.Summary, res.Conflicts)
	res.OverallQuality = pmi.LabelFor(res.OverallScore)

	e.logger.Info("run %s batch %s: %d specimens, %d excluded, consensus %.2f d, severity %s (%s)",
		res.RunID, res.Fingerprint.Short(), len(res.Specimens), len(res.Excluded), res.Consensus.PMIDays, res.Conflicts.Severity, time.Since(start))
	return res, nil
}

func temperatureFor(batch specimen.Batch, i int) (specimen.TemperatureContext, bool) {
	if batch.Specimens[i].AmbientC == nil && batch.AmbientC == nil {
		return specimen.TemperatureContext{}, false
	}
	return batch.TemperatureFor(i, specimen.TemperatureContext{}), true
}

// buildConsensus weights each specimen by its quality score. Specimens scoring 0
// drop out of the sum; when every score is 0 all specimens weigh the same.
func buildConsensus(results []SpecimenResult) Consensus {
	if len(results) == 1 {
		r := results[0]
		return Consensus{
			Method:         MethodSingleSpecimen,
			PMIDays:        r.Estimate.Days(),
			PMIHours:       r.Estimate.Hours,
			ConfidenceLow:  r.Estimate.LowDays(),
			ConfidenceHigh: r.Estimate.HighDays(),
			Basis:          fmt.Sprintf("Single specimen: %s %s", r.Record.Species, r.Record.Stage),
		}
	}

	weights := make([]float64, len(results))
	var total float64
	for i, r := range results {
		if q := r.Estimate.QualityScore; q > 0 {
			weights[i] = q
			total += q
		}
	}
	basis := fmt.Sprintf("Quality-weighted average of %d specimens", len(results))
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(results))
		basis = fmt.Sprintf("Equal-weighted average of %d specimens (all quality scores are zero)", len(results))
	}

	var days, low, high float64
	for i, r := range results {
		w := weights[i] / total
		days += w * r.Estimate.Days()
		low += w * r.Estimate.LowDays()
		high += w * r.Estimate.HighDays()
	}
	return Consensus{
		Method:         MethodQualityWeighted,
		PMIDays:        days,
		PMIHours:       days * pmi.HoursPerDay,
		ConfidenceLow:  low,
		ConfidenceHigh: high,
		Basis:          basis,
	}
}

// overallScore is the mean quality minus 30 (severe) or 15 (moderate) conflict
// points, plus 10 for three or more specimens.
func overallScore(s Summary, c ConflictAnalysis) float64 {
	score := s.QualityMean
	switch c.Severity {
	case SeveritySevere:
		score -= 30
	case SeverityModerate:
		score -= 15
	}
	if s.SpecimenCount >= 3 {
		score += 10
	}
	return pmi.ClampScore(score)
}
