package estimator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pmiengine/adapters/rng"
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal/quality"
	"pmiengine/internal/uncertainty"
	"pmiengine/internal/workers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEstimator() *Estimator {
	sim := uncertainty.NewSimulator(rng.NewPCGStreams(), workers.NewPool(2), uncertainty.DefaultSources())
	return New(species.MustDefault(), nil, WithSimulator(sim, uncertainty.DefaultSimulationConfig()))
}

func record(speciesID string, stage species.Stage) specimen.Record {
	return specimen.Record{SpecimenID: "S1", Species: speciesID, Stage: stage}
}

func TestEstimateScenarios(t *testing.T) {
	tests := []struct {
		name    string
		species string
		stage   species.Stage
		ambient float64
		units   float64
		teff    float64
		hours   float64
		quality float64
	}{
		{"sericata third instar", "lucilia_sericata", species.ThirdInstar, 20, 78, 12, 156, 100},
		{"rufifacies second instar", "chrysomya_rufifacies", species.SecondInstar, 25, 35, 15, 56, 97},
		{"vicina pupa", "calliphora_vicina", species.Pupa, 15, 189, 9, 504, 92},
	}
	e := newEstimator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := e.Estimate(context.Background(), record(tt.species, tt.stage), specimen.Manual(tt.ambient), Options{})
			require.NoError(t, err)

			assert.Equal(t, pmi.ADDStandard, est.Method)
			assert.InDelta(t, tt.units, est.RequiredUnits, 1e-9)
			assert.InDelta(t, tt.teff, est.EffectiveTempC, 1e-9)
			assert.InDelta(t, tt.hours, est.Hours, 1e-9)
			assert.InDelta(t, tt.hours*0.8, est.LowHours, 1e-9)
			assert.InDelta(t, tt.hours*1.2, est.HighHours, 1e-9)
			assert.Equal(t, pmi.IntervalFixedBand, est.IntervalSource)
			assert.InDelta(t, tt.quality, est.QualityScore, 1e-9)
			assert.Equal(t, pmi.LabelFor(tt.quality), est.Quality)
		})
	}
}

func TestEstimateScenarioDays(t *testing.T) {
	est, err := newEstimator().Estimate(context.Background(), record("chrysomya_rufifacies", species.SecondInstar), specimen.Manual(25), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2.333, est.Days(), 1e-3)
	require.Len(t, est.Warnings, 1)
	assert.Contains(t, est.Warnings[0], "INFO: Limited validation data")
}

func TestEstimateErrors(t *testing.T) {
	tooLong := 60.0
	rec := record("lucilia_sericata", species.ThirdInstar)
	longRec := rec
	longRec.LengthMM = &tooLong

	tests := []struct {
		name  string
		rec   specimen.Record
		temp  float64
		opts  Options
		check func(error) bool
	}{
		{"unknown species", record("musca_domestica", species.ThirdInstar), 20, Options{}, core.IsInputValidationError},
		{"unknown stage", record("lucilia_sericata", species.Stage("egg")), 20, Options{}, core.IsInputValidationError},
		{"length out of range", longRec, 20, Options{}, core.IsInputValidationError},
		{"ambient at base", rec, 8, Options{}, core.IsNonViableTemperatureError},
		{"ambient below base", rec, 3, Options{}, core.IsNonViableTemperatureError},
		{"unknown method", rec, 20, Options{Method: pmi.MethodCount}, core.IsUnknownMethodError},
		{"unknown mode", rec, 20, Options{Uncertainty: "bootstrap"}, core.IsInputValidationError},
	}
	e := newEstimator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Estimate(context.Background(), tt.rec, specimen.Manual(tt.temp), tt.opts)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestEstimateAnalyticalInterval(t *testing.T) {
	est, err := newEstimator().Estimate(context.Background(), record("lucilia_sericata", species.ThirdInstar), specimen.Manual(20),
		Options{Uncertainty: UncertaintyAnalytical})
	require.NoError(t, err)
	assert.Equal(t, pmi.IntervalAnalytical, est.IntervalSource)
	assert.InDelta(t, 2.2854, est.LowDays(), 1e-3)
	assert.InDelta(t, 10.7146, est.HighDays(), 1e-3)
}

func TestEstimateMonteCarloInterval(t *testing.T) {
	cfg := uncertainty.DefaultSimulationConfig()
	cfg.Trials = 2000
	cfg.Tolerance = 0.05

	est, err := newEstimator().Estimate(context.Background(), record("lucilia_sericata", species.ThirdInstar), specimen.Manual(20),
		Options{Uncertainty: UncertaintyMonteCarlo, Simulation: &cfg})
	require.NoError(t, err)
	assert.Equal(t, pmi.IntervalMonteCarlo, est.IntervalSource)
	assert.Less(t, est.LowDays(), est.Days())
	assert.Greater(t, est.HighDays(), est.Days())
}

// TestEstimateSimulationWarningsFollowQualityWarnings uses a budget too small to
// converge, so the simulation adds its own warning after the scorer's.
func TestEstimateSimulationWarningsFollowQualityWarnings(t *testing.T) {
	cfg := uncertainty.DefaultSimulationConfig()
	cfg.Trials = 1000
	cfg.Window = 1000

	e := newEstimator()
	rec := record("chrysomya_rufifacies", species.SecondInstar)
	opts := Options{Uncertainty: UncertaintyMonteCarlo, Simulation: &cfg}

	first, err := e.Estimate(context.Background(), rec, specimen.Manual(25), opts)
	require.NoError(t, err)
	require.Len(t, first.Warnings, 2)
	assert.Contains(t, first.Warnings[0], "INFO: Limited validation data")
	assert.Contains(t, first.Warnings[1], "WARNING: ")

	first.Warnings[0] = "changed"
	second, err := e.Estimate(context.Background(), rec, specimen.Manual(25), opts)
	require.NoError(t, err)
	assert.Contains(t, second.Warnings[0], "INFO: Limited validation data")
}

func TestEstimateMonteCarloNeedsSimulator(t *testing.T) {
	e := New(species.MustDefault(), nil)
	_, err := e.Estimate(context.Background(), record("lucilia_sericata", species.ThirdInstar), specimen.Manual(20),
		Options{Uncertainty: UncertaintyMonteCarlo})
	assert.True(t, core.IsInputValidationError(err))
}

func TestEstimateMethodDisagreementPenalty(t *testing.T) {
	cv := 40.0
	e := New(species.MustDefault(), quality.NewScorer(quality.DefaultConfig()))
	est, err := e.Estimate(context.Background(), record("lucilia_sericata", species.ThirdInstar), specimen.Manual(20),
		Options{MethodCV: &cv})
	require.NoError(t, err)
	assert.InDelta(t, 90, est.QualityScore, 1e-9)
	assert.Contains(t, est.Warnings, "WARNING: Methods disagree (CV 40.0% > 35%)")
}

func TestEstimateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEstimator().Estimate(ctx, record("lucilia_sericata", species.ThirdInstar), specimen.Manual(20), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseUncertaintyMode(t *testing.T) {
	for in, want := range map[string]UncertaintyMode{
		"":            UncertaintyNone,
		"none":        UncertaintyNone,
		"analytical":  UncertaintyAnalytical,
		"monte_carlo": UncertaintyMonteCarlo,
		"mc":          UncertaintyMonteCarlo,
	} {
		got, err := ParseUncertaintyMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseUncertaintyMode("bootstrap")
	assert.True(t, core.IsInputValidationError(err))
}
