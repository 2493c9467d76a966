package uncertainty

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"pmiengine/adapters/devmodels"
	"pmiengine/domain/core"
	"pmiengine/domain/species"
	"pmiengine/internal"
	"pmiengine/internal/workers"
	"pmiengine/ports"
)

// StreamName keys the per-chunk RNG streams of a simulation
const StreamName = "montecarlo"

// cancellation is checked every ctxCheckEvery trials inside a chunk
const ctxCheckEvery = 256

// SeedDrawCount is how many leading draws a result records for replay checks
const SeedDrawCount = 3

// SimulationConfig controls a Monte Carlo run
type SimulationConfig struct {
	Trials     int     `json:"trials"`
	Window     int     `json:"window"`
	Tolerance  float64 `json:"tolerance"`
	MinSamples int     `json:"min_samples"`
	Seed       int64   `json:"seed"`
}

// DefaultSimulationConfig runs 10 000 trials in windows of 1 000 with a 1% tolerance
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Trials:     10000,
		Window:     1000,
		Tolerance:  0.01,
		MinSamples: 2000,
		Seed:       42,
	}
}

func (c SimulationConfig) validate() error {
	if c.Trials <= 0 {
		return core.NewInputValidationError("trials", "must be positive")
	}
	if c.Window <= 0 {
		return core.NewInputValidationError("window", "must be positive")
	}
	if c.Tolerance <= 0 {
		return core.NewInputValidationError("tolerance", "must be positive")
	}
	return nil
}

// MonteCarlo summarises a simulation. Intervals are keyed by confidence percent.
type MonteCarlo struct {
	MeanDays        float64          `json:"mean_days"`
	StdDevDays      float64          `json:"std_dev_days"`
	Intervals       map[int]Interval `json:"intervals"`
	TrialsRequested int              `json:"trials_requested"`
	TrialsUsed      int              `json:"trials_used"`
	Samples         int              `json:"samples"`
	Rejected        int              `json:"rejected"`
	ExtremeOutliers int              `json:"extreme_outliers"`
	Converged       bool             `json:"converged"`
	Partial         bool             `json:"partial"`
	Seed            int64            `json:"seed"`
	SeedDraws       []float64        `json:"seed_draws,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// Interval95 returns the 95% percentile interval
func (mc MonteCarlo) Interval95() (Interval, bool) {
	iv, ok := mc.Intervals[95]
	return iv, ok
}

type chunk struct {
	samples  []float64
	attempts int
	rejected int
}

// Simulator runs seeded Monte Carlo simulations on a worker pool
type Simulator struct {
	rng     ports.RNGPort
	pool    *workers.Pool
	sources Sources
	logger  *internal.Logger
}

// NewSimulator creates a simulator. A nil pool runs chunks one at a time.
func NewSimulator(rng ports.RNGPort, pool *workers.Pool, sources Sources) *Simulator {
	if pool == nil {
		pool = workers.NewPool(1)
	}
	return &Simulator{
		rng:     rng,
		pool:    pool,
		sources: sources,
		logger:  internal.DefaultLogger.With("MonteCarlo"),
	}
}

// WithLogger replaces the simulator's logger
func (s *Simulator) WithLogger(l *internal.Logger) *Simulator {
	s.logger = l.With("MonteCarlo")
	return s
}

// Simulate draws temperature, threshold and length per trial and recomputes the PMI
// through the selected model. Chunks are dispatched in waves of the pool width and
// consumed in index order, so the result depends only on the inputs and the seed.
// A cancelled ctx yields the completed prefix marked Partial.
func (s *Simulator) Simulate(ctx context.Context, in Input, cfg SimulationConfig) (MonteCarlo, error) {
	if err := cfg.validate(); err != nil {
		return MonteCarlo{}, err
	}
	if _, err := devmodels.Compute(in.Method, in.modelInput()); err != nil {
		return MonteCarlo{}, err
	}
	th, _ := in.Profile.Threshold(in.Stage)

	numChunks := (cfg.Trials + cfg.Window - 1) / cfg.Window
	out := MonteCarlo{TrialsRequested: cfg.Trials, Seed: cfg.Seed}
	if draws, err := s.rng.Draws(ctx, StreamName, cfg.Seed, SeedDrawCount); err == nil {
		out.SeedDraws = draws
	}
	var (
		samples  []float64
		prevMean = math.NaN()
		reason   = "trial budget exhausted"
	)

consume:
	for start := 0; start < numChunks; start += s.pool.Width() {
		end := min(start+s.pool.Width(), numChunks)
		wave := make([]int, 0, end-start)
		for idx := start; idx < end; idx++ {
			wave = append(wave, idx)
		}

		outcomes := workers.MapSettled(ctx, s.pool, wave, func(ctx context.Context, _ int, idx int) (chunk, error) {
			n := min(cfg.Window, cfg.Trials-idx*cfg.Window)
			return s.runChunk(ctx, in, th, cfg.Seed, idx, n)
		})

		for i, oc := range outcomes {
			if oc.Err != nil {
				if ctx.Err() == nil {
					return MonteCarlo{}, oc.Err
				}
				out.Partial = true
				reason = "cancelled"
				s.logger.Warn("simulation cancelled after %d chunks", start+i)
				break consume
			}
			samples = append(samples, oc.Value.samples...)
			out.TrialsUsed += oc.Value.attempts
			out.Rejected += oc.Value.rejected

			if len(oc.Value.samples) == 0 {
				continue
			}
			mean := stat.Mean(oc.Value.samples, nil)
			if !math.IsNaN(prevMean) && len(samples) >= cfg.MinSamples && relativeChange(prevMean, mean) < cfg.Tolerance {
				out.Converged = true
				s.logger.Debug("converged after %d trials (window mean %.4f)", out.TrialsUsed, mean)
				break consume
			}
			prevMean = mean
		}
	}

	out.Samples = len(samples)
	if len(samples) == 0 {
		if out.Partial {
			out.Warnings = append(out.Warnings, core.NewConvergenceWarning(out.TrialsUsed, reason).Error())
			return out, nil
		}
		return MonteCarlo{}, core.NewNonViableTemperatureError(in.AmbientC, in.Profile.BaseTempC)
	}

	sort.Float64s(samples)
	out.MeanDays, out.StdDevDays = stat.MeanStdDev(samples, nil)
	if len(samples) < 2 {
		out.StdDevDays = 0
	}
	out.Intervals = map[int]Interval{
		90: percentileInterval(0.90, samples),
		95: percentileInterval(0.95, samples),
		99: percentileInterval(0.99, samples),
	}
	if outliers, err := stats.QuartileOutliers(samples); err == nil {
		out.ExtremeOutliers = len(outliers.Extreme)
	}
	if !out.Converged {
		out.Warnings = append(out.Warnings, core.NewConvergenceWarning(out.TrialsUsed, reason).Error())
	}
	s.logger.Info("%d trials, %d rejected, mean %.3f d, converged=%t", out.TrialsUsed, out.Rejected, out.MeanDays, out.Converged)
	return out, nil
}

// VerifySeed checks that seed still yields the draws a previous run recorded, so a
// replayed report runs on the same random streams.
func (s *Simulator) VerifySeed(ctx context.Context, seed int64, draws []float64) error {
	if err := s.rng.ValidateSeed(ctx, StreamName, seed, draws); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.NewInputValidationError("replay_draws", err.Error())
	}
	return nil
}

func (s *Simulator) runChunk(ctx context.Context, in Input, th species.Threshold, seed int64, idx, n int) (chunk, error) {
	src, err := s.rng.Stream(ctx, StreamName, idx, seed)
	if err != nil {
		return chunk{}, err
	}
	temp := distuv.Normal{Mu: in.AmbientC, Sigma: s.sources.TemperatureSigmaC, Src: src}
	units := distuv.Uniform{Min: th.Min, Max: th.Max, Src: src}
	var length distuv.Normal
	if in.LengthMM != nil {
		length = distuv.Normal{Mu: *in.LengthMM, Sigma: s.sources.LengthRel * *in.LengthMM, Src: src}
	}

	c := chunk{samples: make([]float64, 0, n)}
	for t := 0; t < n; t++ {
		if t%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return chunk{}, err
			}
		}
		c.attempts++

		mi := in.modelInput()
		mi.EffectiveTemp = in.Profile.EffectiveTemp(temp.Rand())
		mi.UnitScale = units.Rand() / th.Mid
		if in.LengthMM != nil {
			l := math.Max(0.1, length.Rand())
			mi.LengthMM = &l
		}
		if mi.EffectiveTemp <= 0 {
			c.rejected++
			continue
		}
		res, err := devmodels.Compute(in.Method, mi)
		if err != nil {
			if core.IsNonViableTemperatureError(err) {
				c.rejected++
				continue
			}
			return chunk{}, fmt.Errorf("trial %d of chunk %d: %w", t, idx, err)
		}
		c.samples = append(c.samples, res.Days())
	}
	return c, nil
}

func relativeChange(prev, cur float64) float64 {
	if prev == 0 {
		return math.Abs(cur)
	}
	return math.Abs(cur-prev) / math.Abs(prev)
}

// percentileInterval expects sorted data
func percentileInterval(level float64, sorted []float64) Interval {
	tail := (1 - level) / 2
	return Interval{
		Level:    level,
		LowDays:  stat.Quantile(tail, stat.Empirical, sorted, nil),
		HighDays: stat.Quantile(1-tail, stat.Empirical, sorted, nil),
	}
}
