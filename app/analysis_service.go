package app

import (
	"context"
	"fmt"
	"time"

	"pmiengine/adapters/rng"
	"pmiengine/domain/core"
	"pmiengine/domain/pmi"
	"pmiengine/domain/species"
	"pmiengine/domain/specimen"
	"pmiengine/internal"
	"pmiengine/internal/comparator"
	"pmiengine/internal/config"
	"pmiengine/internal/consensus"
	"pmiengine/internal/estimator"
	"pmiengine/internal/metrics"
	"pmiengine/internal/quality"
	"pmiengine/internal/tempctx"
	"pmiengine/internal/uncertainty"
	"pmiengine/internal/workers"
	"pmiengine/ports"
)

// AnalysisService is the single entry point the CLI and HTTP layers share. It
// owns no mutable state; every call is independent.
type AnalysisService struct {
	table      *species.Table
	estimator  *estimator.Estimator
	comparator *comparator.Comparator
	simulator  *uncertainty.Simulator
	engine     *consensus.Engine
	resolver   ports.TemperatureResolver
	metrics    *metrics.Metrics
	defaults   estimator.Options
	simCfg     uncertainty.SimulationConfig
	logger     *internal.Logger
}

// Dependencies are the collaborators a service can be given; zero values get defaults
type Dependencies struct {
	Table    *species.Table
	RNG      ports.RNGPort
	Resolver ports.TemperatureResolver
	Metrics  *metrics.Metrics
	Logger   *internal.Logger
	Clock    core.Clock
}

// EstimateRequest is one specimen plus its temperature context
type EstimateRequest struct {
	Specimen    specimen.Input           `json:"specimen"`
	Temperature ports.TemperatureRequest `json:"temperature"`
	Method      string                   `json:"method,omitempty"`
	Uncertainty string                   `json:"uncertainty,omitempty"`
	Seed        *int64                   `json:"seed,omitempty"`

	// ReplayDraws are the seed_draws of an earlier report; Validate refuses to
	// run when the seed no longer reproduces them
	ReplayDraws []float64 `json:"replay_draws,omitempty"`
}

// ConsensusRequest is a batch plus an optional scene temperature used when the
// batch carries no ambient_c of its own
type ConsensusRequest struct {
	Batch       specimen.Batch            `json:"batch"`
	Temperature *ports.TemperatureRequest `json:"temperature,omitempty"`
}

// EstimateResult is a single estimate with its resolved temperature
type EstimateResult struct {
	SpecimenID  core.SpecimenID             `json:"specimen_id"`
	Temperature specimen.TemperatureContext `json:"temperature"`
	Estimate    pmi.Estimate                `json:"estimate"`
	PMIDays     float64                     `json:"pmi_days"`
	LowDays     float64                     `json:"confidence_low"`
	HighDays    float64                     `json:"confidence_high"`
}

// ValidationReport combines every uncertainty analysis for one specimen
type ValidationReport struct {
	Estimate    EstimateResult                `json:"estimate"`
	Comparison  comparator.MultiMethodResult  `json:"method_comparison"`
	Analytical  uncertainty.Analytical        `json:"analytical_uncertainty"`
	MonteCarlo  *uncertainty.MonteCarlo       `json:"monte_carlo,omitempty"`
	KnownCases  []uncertainty.KnownCaseResult `json:"known_cases"`
	Composite   uncertainty.CompositeScore    `json:"validation_score"`
	GeneratedAt core.Timestamp                `json:"generated_at"`
}

// NewAnalysisService wires the estimator, comparator, simulator and consensus
// engine from configuration
func NewAnalysisService(cfg *config.Config, deps Dependencies) (*AnalysisService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	table := deps.Table
	if table == nil {
		t, err := species.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load species table: %w", err)
		}
		table = t
	}
	logger := deps.Logger
	if logger == nil {
		logger = cfg.Logger()
	}
	rngPort := deps.RNG
	if rngPort == nil {
		rngPort = rng.NewPCGStreams()
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = tempctx.NewResolver()
	}
	clock := deps.Clock
	if clock == nil {
		clock = core.SystemClock
	}

	// Specimens and simulation chunks get separate pools: every consensus unit may
	// start a simulation, and its chunks must not wait on the slots the specimens hold.
	pool := workers.NewPool(cfg.Engine.Workers)
	simPool := workers.NewPool(cfg.Engine.Workers)
	simCfg := cfg.Simulation()
	sim := uncertainty.NewSimulator(rngPort, simPool, uncertainty.DefaultSources()).WithLogger(logger)
	scorer := quality.NewScorer(cfg.Scoring())
	est := estimator.New(table, scorer,
		estimator.WithSimulator(sim, simCfg),
		estimator.WithLogger(logger),
	)
	engine := consensus.NewEngine(est, pool, cfg.ConsensusEngine(),
		consensus.WithClock(clock),
		consensus.WithLogger(logger),
	)

	return &AnalysisService{
		table:      table,
		estimator:  est,
		comparator: comparator.New(table, scorer, pool),
		simulator:  sim,
		engine:     engine,
		resolver:   resolver,
		metrics:    deps.Metrics,
		defaults:   estimator.Options{Method: cfg.Method(), Uncertainty: cfg.UncertaintyMode()},
		simCfg:     simCfg,
		logger:     logger.With("AnalysisService"),
	}, nil
}

// Species returns every reference profile in id order
func (s *AnalysisService) Species() []*species.Profile {
	ids := s.table.IDs()
	out := make([]*species.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.table.Lookup(id)
		if err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Estimate validates the specimen, resolves its temperature and runs one method
func (s *AnalysisService) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResult, error) {
	opts, err := s.options(req)
	if err != nil {
		s.metrics.ObserveEstimate(req.Method, err)
		return nil, err
	}
	rec, temp, err := s.prepare(ctx, req)
	if err != nil {
		s.metrics.ObserveEstimate(opts.Method.String(), err)
		return nil, err
	}
	est, err := s.estimator.Estimate(ctx, rec, temp, opts)
	s.metrics.ObserveEstimate(opts.Method.String(), err)
	if err != nil {
		return nil, err
	}
	return newEstimateResult(rec, temp, est), nil
}

// Compare runs every method for the specimen
func (s *AnalysisService) Compare(ctx context.Context, req EstimateRequest) (*comparator.MultiMethodResult, error) {
	rec, temp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := s.comparator.Compare(ctx, rec, temp)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Validate runs the estimate, the method comparison, analytical propagation, a
// Monte Carlo simulation and the known-case check, then scores them together.
// A simulation that fails outright is reported through the recommendations
// rather than failing the report.
func (s *AnalysisService) Validate(ctx context.Context, req EstimateRequest) (*ValidationReport, error) {
	start := time.Now()
	opts, err := s.options(req)
	if err != nil {
		return nil, err
	}
	rec, temp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	profile, err := s.table.Lookup(rec.Species)
	if err != nil {
		return nil, err
	}

	cmp, err := s.comparator.Compare(ctx, rec, temp)
	if err != nil {
		return nil, err
	}
	cv := cmp.CVPercent
	opts.MethodCV = &cv
	if opts.Uncertainty == estimator.UncertaintyMonteCarlo {
		// the report runs its own simulation below
		opts.Uncertainty = estimator.UncertaintyAnalytical
	}
	est, err := s.estimator.Estimate(ctx, rec, temp, opts)
	s.metrics.ObserveEstimate(opts.Method.String(), err)
	if err != nil {
		return nil, err
	}

	in := uncertainty.Input{
		Profile:  profile,
		Stage:    rec.Stage,
		LengthMM: rec.LengthMM,
		AmbientC: temp.AmbientC,
		Method:   opts.Method,
	}
	analytical, err := uncertainty.Propagate(in, uncertainty.DefaultSources())
	if err != nil {
		return nil, err
	}

	simCfg := s.simCfg
	if req.Seed != nil {
		simCfg.Seed = *req.Seed
	}
	if len(req.ReplayDraws) > 0 {
		if err := s.simulator.VerifySeed(ctx, simCfg.Seed, req.ReplayDraws); err != nil {
			return nil, err
		}
	}
	var mc *uncertainty.MonteCarlo
	sim, err := s.simulator.Simulate(ctx, in, simCfg)
	switch {
	case err == nil:
		mc = &sim
		s.metrics.ObserveSimulation(sim)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.logger.Warn("monte carlo skipped for %s: %v", rec.SpecimenID, err)
	}

	known := uncertainty.CrossValidate(s.table, opts.Method, rec.Species, rec.Stage)
	agreement := cmp.Evidence()
	qs := est.QualityScore
	composite := uncertainty.Composite(uncertainty.Parts{
		QualityScore: &qs,
		Agreement:    &agreement,
		Analytical:   &analytical,
		MonteCarlo:   mc,
		KnownCases:   known,
	})

	s.logger.Info("validated %s in %s: score %.1f (%s)", rec.SpecimenID, time.Since(start), composite.Score, composite.Label)
	return &ValidationReport{
		Estimate:    *newEstimateResult(rec, temp, est),
		Comparison:  cmp,
		Analytical:  analytical,
		MonteCarlo:  mc,
		KnownCases:  known,
		Composite:   composite,
		GeneratedAt: core.Now(),
	}, nil
}

// Consensus analyzes a batch. A scene temperature is resolved only when the batch
// has no ambient value of its own.
func (s *AnalysisService) Consensus(ctx context.Context, req ConsensusRequest) (*consensus.Result, error) {
	batch := req.Batch
	if batch.AmbientC == nil && req.Temperature != nil {
		tc, err := s.resolver.Resolve(ctx, *req.Temperature)
		if err != nil {
			return nil, err
		}
		ambient := tc.AmbientC
		batch.AmbientC = &ambient
		s.logger.Debug("batch temperature %s", tempctx.Describe(tc))
	}
	res, err := s.engine.Analyze(ctx, batch)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveConsensus(res)
	return res, nil
}

func (s *AnalysisService) options(req EstimateRequest) (estimator.Options, error) {
	opts := s.defaults
	if req.Method != "" {
		m, err := pmi.ParseMethod(req.Method)
		if err != nil {
			return estimator.Options{}, err
		}
		opts.Method = m
	}
	if req.Uncertainty != "" {
		mode, err := estimator.ParseUncertaintyMode(req.Uncertainty)
		if err != nil {
			return estimator.Options{}, err
		}
		opts.Uncertainty = mode
	}
	if req.Seed != nil {
		cfg := s.simCfg
		cfg.Seed = *req.Seed
		opts.Simulation = &cfg
	}
	return opts, nil
}

func (s *AnalysisService) prepare(ctx context.Context, req EstimateRequest) (specimen.Record, specimen.TemperatureContext, error) {
	rec, err := specimen.New(req.Specimen, 0, s.table)
	if err != nil {
		return specimen.Record{}, specimen.TemperatureContext{}, err
	}
	treq := req.Temperature
	if treq.ManualC == nil && req.Specimen.AmbientC != nil {
		treq.ManualC = req.Specimen.AmbientC
	}
	temp, err := s.resolver.Resolve(ctx, treq)
	if err != nil {
		return specimen.Record{}, specimen.TemperatureContext{}, err
	}
	return rec, temp, nil
}

func newEstimateResult(rec specimen.Record, temp specimen.TemperatureContext, est pmi.Estimate) *EstimateResult {
	return &EstimateResult{
		SpecimenID:  rec.SpecimenID,
		Temperature: temp,
		Estimate:    est,
		PMIDays:     est.Days(),
		LowDays:     est.LowDays(),
		HighDays:    est.HighDays(),
	}
}
