// Package estimator turns one specimen record and an ambient temperature into a
// scored PMI estimate.
package estimator

import (
	"context"
	"fmt"
	"slices"

	"pmiengine/adapters/devmodels"
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal"
	"pmiengine/internal/quality"
	"pmiengine/internal/uncertainty"
)

// UncertaintyMode selects how the confidence interval is derived
type UncertaintyMode string

const (
	UncertaintyNone       UncertaintyMode = ""
	UncertaintyAnalytical UncertaintyMode = "analytical"
	UncertaintyMonteCarlo UncertaintyMode = "monte_carlo"
)

// ParseUncertaintyMode accepts "", "none", "analytical" and "monte_carlo"
func ParseUncertaintyMode(s string) (UncertaintyMode, error) {
	switch s {
	case "", "none", "fixed_band":
		return UncertaintyNone, nil
	case string(UncertaintyAnalytical):
		return UncertaintyAnalytical, nil
	case string(UncertaintyMonteCarlo), "montecarlo", "mc":
		return UncertaintyMonteCarlo, nil
	}
	return "", core.NewInputValidationError("uncertainty", fmt.Sprintf("unknown mode %q", s))
}

// Options tune one estimate. The zero value runs add_standard with the fixed band.
type Options struct {
	Method      pmi.Method
	Uncertainty UncertaintyMode
	MethodCV    *float64

	// Simulation overrides the estimator's Monte Carlo settings
	Simulation *uncertainty.SimulationConfig
}

// Estimator is safe for concurrent use
type Estimator struct {
	table   *species.Table
	scorer  *quality.Scorer
	sim     *uncertainty.Simulator
	sources uncertainty.Sources
	simCfg  uncertainty.SimulationConfig
	logger  *internal.Logger
}

// Option configures an Estimator
type Option func(*Estimator)

// WithSimulator enables the monte_carlo uncertainty mode
func WithSimulator(sim *uncertainty.Simulator, cfg uncertainty.SimulationConfig) Option {
	return func(e *Estimator) {
		e.sim = sim
		e.simCfg = cfg
	}
}

// WithSources replaces the analytical uncertainty sources
func WithSources(src uncertainty.Sources) Option {
	return func(e *Estimator) { e.sources = src }
}

// WithLogger replaces the default logger
func WithLogger(l *internal.Logger) Option {
	return func(e *Estimator) { e.logger = l.With("Estimator") }
}

// New creates an estimator over a species table
func New(table *species.Table, scorer *quality.Scorer, opts ...Option) *Estimator {
	if scorer == nil {
		scorer = quality.NewScorer(quality.DefaultConfig())
	}
	e := &Estimator{
		table:   table,
		scorer:  scorer,
		sources: uncertainty.DefaultSources(),
		simCfg:  uncertainty.DefaultSimulationConfig(),
		logger:  internal.DefaultLogger.With("Estimator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the species table the estimator reads
func (e *Estimator) Table() *species.Table {
	return e.table
}

// Estimate runs the chosen model for the specimen, attaches an interval and scores
// the result.
func (e *Estimator) Estimate(ctx context.Context, rec specimen.Record, temp specimen.TemperatureContext, opts Options) (pmi.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return pmi.Estimate{}, err
	}
	if !opts.Method.Valid() {
		return pmi.Estimate{}, core.NewUnknownMethodError(opts.Method.String())
	}
	profile, err := e.table.Lookup(rec.Species)
	if err != nil {
		return pmi.Estimate{}, err
	}
	if _, ok := profile.Threshold(rec.Stage); !ok {
		return pmi.Estimate{}, core.NewUnknownStageError(string(rec.Stage))
	}
	if rec.HasLength() && (rec.Length() <= 0 || rec.Length() > specimen.MaxLengthMM) {
		return pmi.Estimate{}, core.NewLengthRangeError(rec.Length(), specimen.MaxLengthMM)
	}
	teff := profile.EffectiveTemp(temp.AmbientC)
	if teff <= 0 {
		return pmi.Estimate{}, core.NewNonViableTemperatureError(temp.AmbientC, profile.BaseTempC)
	}

	res, err := devmodels.Compute(opts.Method, devmodels.Input{
		Profile:       profile,
		Stage:         rec.Stage,
		LengthMM:      rec.LengthMM,
		EffectiveTemp: teff,
	})
	if err != nil {
		return pmi.Estimate{}, err
	}

	low, high, source, extra, err := e.interval(ctx, profile, rec, temp, opts, res.Hours)
	if err != nil {
		return pmi.Estimate{}, err
	}

	q := e.scorer.Score(quality.Input{
		Profile:  profile,
		Stage:    rec.Stage,
		LengthMM: rec.LengthMM,
		Method:   opts.Method,
		AmbientC: temp.AmbientC,
		PMIDays:  res.Days(),
		MethodCV: opts.MethodCV,
	})
	warnings := append(slices.Clone(q.Warnings), extra...)

	e.logger.Debug("%s %s/%s at %.1f°C: %.2f h (%s, quality %.0f)",
		rec.SpecimenID, rec.Species, rec.Stage, temp.AmbientC, res.Hours, opts.Method, q.Score)

	return pmi.Estimate{
		Method:         opts.Method,
		Hours:          res.Hours,
		LowHours:       low,
		HighHours:      high,
		QualityScore:   q.Score,
		Quality:        q.Label,
		Warnings:       warnings,
		RequiredUnits:  res.RequiredUnits,
		Unit:           res.Unit,
		EffectiveTempC: teff,
		IntervalSource: source,
	}, nil
}

// interval returns hour bounds, the interval source and any extra warnings
func (e *Estimator) interval(ctx context.Context, profile *species.Profile, rec specimen.Record, temp specimen.TemperatureContext, opts Options, hours float64) (float64, float64, string, []string, error) {
	in := uncertainty.Input{
		Profile:  profile,
		Stage:    rec.Stage,
		LengthMM: rec.LengthMM,
		AmbientC: temp.AmbientC,
		Method:   opts.Method,
	}

	switch opts.Uncertainty {
	case UncertaintyAnalytical:
		a, err := uncertainty.Propagate(in, e.sources)
		if err != nil {
			return 0, 0, "", nil, err
		}
		return a.CI95.LowDays * pmi.HoursPerDay, a.CI95.HighDays * pmi.HoursPerDay, pmi.IntervalAnalytical, nil, nil

	case UncertaintyMonteCarlo:
		if e.sim == nil {
			return 0, 0, "", nil, core.NewInputValidationError("uncertainty", "monte carlo is not configured")
		}
		cfg := e.simCfg
		if opts.Simulation != nil {
			cfg = *opts.Simulation
		}
		mc, err := e.sim.Simulate(ctx, in, cfg)
		if err != nil {
			return 0, 0, "", nil, err
		}
		var extra []string
		for _, w := range mc.Warnings {
			extra = append(extra, quality.LevelWarning+": "+w)
		}
		iv, ok := mc.Interval95()
		if !ok {
			low, high := pmi.Band(hours, pmi.FixedBand)
			return low, high, pmi.IntervalFixedBand, extra, nil
		}
		return iv.LowDays * pmi.HoursPerDay, iv.HighDays * pmi.HoursPerDay, pmi.IntervalMonteCarlo, extra, nil

	case UncertaintyNone:
		low, high := pmi.Band(hours, pmi.FixedBand)
		return low, high, pmi.IntervalFixedBand, nil, nil
	}
	return 0, 0, "", nil, core.NewInputValidationError("uncertainty", fmt.Sprintf("unknown mode %q", opts.Uncertainty))
}
