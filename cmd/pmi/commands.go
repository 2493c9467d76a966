package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pmiengine/adapters/excel"
	"pmiengine/app"
	"pmiengine/domain/specimen"
	"pmiengine/internal/consensus"
	"pmiengine/internal/errors"
)

func newEstimateCmd() *cobra.Command {
	var f specimenFlags

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate PMI for one specimen",
		Long: `Estimate the post-mortem interval for a single specimen with one method.

Example: pmi estimate --species lucilia_sericata --stage 3rd_instar --temp 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			res, err := svc.Estimate(cmd.Context(), req)
			if err != nil {
				return wrap(err)
			}
			if f.asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printEstimate(cmd, res)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printEstimate(cmd *cobra.Command, res *app.EstimateResult) {
	out := cmd.OutOrStdout()
	e := res.Estimate
	fmt.Fprintf(out, "Specimen:     %s\n", res.SpecimenID)
	fmt.Fprintf(out, "Method:       %s\n", e.Method)
	fmt.Fprintf(out, "Temperature:  %.1f°C (%s), Teff %.1f°C\n", res.Temperature.AmbientC, res.Temperature.Source, e.EffectiveTempC)
	fmt.Fprintf(out, "Required:     %.1f %s\n", e.RequiredUnits, e.Unit)
	fmt.Fprintf(out, "PMI:          %.2f days (%.1f hours)\n", res.PMIDays, e.Hours)
	fmt.Fprintf(out, "Interval:     %.2f - %.2f days (%s)\n", res.LowDays, res.HighDays, e.IntervalSource)
	fmt.Fprintf(out, "Quality:      %.0f (%s)\n", e.QualityScore, e.Quality)
	for _, w := range e.Warnings {
		fmt.Fprintf(out, "  - %s\n", w)
	}
}

func newCompareCmd() *cobra.Command {
	var f specimenFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every method for one specimen and report agreement",
		Long: `Run all seven development models for a specimen and report the spread,
agreement level, outlier methods and the reliability-weighted estimate.

Example: pmi compare --species calliphora_vicina --stage pupa --temp 15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			res, err := svc.Compare(cmd.Context(), req)
			if err != nil {
				return wrap(err)
			}
			if f.asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %10s %10s %10s %8s %8s\n", "METHOD", "PMI (d)", "LOW", "HIGH", "WEIGHT", "QUALITY")
			for _, e := range res.Estimates {
				fmt.Fprintf(out, "%-20s %10.2f %10.2f %10.2f %8.3f %8.0f\n", e.Method, e.Days(), e.LowDays(), e.HighDays(), e.Weight, e.QualityScore)
			}
			fmt.Fprintf(out, "\nMean %.2f d, SD %.2f d, CV %.1f%% (%s agreement)\n", res.MeanDays, res.StdDevDays, res.CVPercent, res.Agreement)
			fmt.Fprintf(out, "Weighted %.2f d [%.2f, %.2f]\n", res.WeightedDays, res.WeightedLowDays, res.WeightedHighDays)
			if len(res.OutlierMethods) > 0 {
				names := make([]string, len(res.OutlierMethods))
				for i, m := range res.OutlierMethods {
					names[i] = m.String()
				}
				fmt.Fprintf(out, "Outliers: %s\n", strings.Join(names, ", "))
			}
			fmt.Fprintf(out, "Reliability %.1f/100\n", res.Reliability.Overall)
			for _, r := range res.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	var f specimenFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Full uncertainty and validation report for one specimen",
		Long: `Combine the estimate, the method comparison, analytical error propagation,
a Monte Carlo simulation and the known literature cases into one validation score.

Example: pmi validate --species lucilia_sericata --stage 3rd_instar --temp 20 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			rep, err := svc.Validate(cmd.Context(), req)
			if err != nil {
				return wrap(err)
			}
			if f.asJSON {
				return printJSON(cmd.OutOrStdout(), rep)
			}

			printEstimate(cmd, &rep.Estimate)
			out := cmd.OutOrStdout()
			a := rep.Analytical
			fmt.Fprintf(out, "\nAnalytical:   ±%.1f%%, 95%% [%.2f, %.2f], 99%% [%.2f, %.2f]\n",
				a.RelativeUncertainty*100, a.CI95.LowDays, a.CI95.HighDays, a.CI99.LowDays, a.CI99.HighDays)
			if mc := rep.MonteCarlo; mc != nil {
				fmt.Fprintf(out, "Monte Carlo:  mean %.2f d over %d trials (converged %t, seed %d)\n", mc.MeanDays, mc.TrialsUsed, mc.Converged, mc.Seed)
				if iv, ok := mc.Interval95(); ok {
					fmt.Fprintf(out, "              95%% [%.2f, %.2f]\n", iv.LowDays, iv.HighDays)
				}
			}
			for _, kc := range rep.KnownCases {
				fmt.Fprintf(out, "Known case:   %s published %.1f d, model %.2f d (%.0f%% error)\n",
					kc.Case, kc.PublishedDays, kc.CalculatedDays, kc.RelativeError*100)
			}
			fmt.Fprintf(out, "\nValidation score %.1f (%s)\n", rep.Composite.Score, rep.Composite.Label)
			for _, r := range rep.Composite.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Float64SliceVar(&f.replay, "replay-draws", nil, "seed_draws of an earlier report; fail unless the seed reproduces them")
	return cmd
}

func newConsensusCmd() *cobra.Command {
	var f specimenFlags
	var outFile string

	cmd := &cobra.Command{
		Use:   "consensus [batch-file]",
		Short: "Multi-specimen consensus from a JSON, XLSX or CSV batch",
		Long: `Estimate every specimen in a batch, detect conflicts between them and build a
quality-weighted consensus PMI. The report is printed as JSON.

The batch file defaults to SPECIMEN_FILE. --temp or --daily-mean applies when the
batch carries no ambient_c.

Example: pmi consensus scene.xlsx --temp 28 --out report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := loadService()
			if err != nil {
				return err
			}
			path := cfg.Data.SpecimenFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no batch file given and SPECIMEN_FILE is not set")
			}

			batch, err := readBatch(cmd, path)
			if err != nil {
				return wrap(err)
			}
			if f.method != "" {
				batch.Method = f.method
			}
			res, err := svc.Consensus(cmd.Context(), app.ConsensusRequest{
				Batch:       batch,
				Temperature: f.sceneTemperature(cmd),
			})
			if err != nil {
				return wrap(err)
			}

			data, err := consensus.NewReport(res).JSON()
			if err != nil {
				return err
			}
			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s (consensus %.2f d, %s conflicts)\n",
					outFile, res.Consensus.PMIDays, res.Conflicts.Severity)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}

	cmd.Flags().Float64Var(&f.tempC, "temp", 0, "Scene ambient temperature in °C")
	cmd.Flags().Float64Var(&f.dailyMeanC, "daily-mean", 0, "Scene daily mean temperature in °C")
	cmd.Flags().StringVar(&f.observedAt, "observed-at", "", "Discovery time (RFC3339)")
	cmd.Flags().StringVar(&f.method, "method", "", "Estimation method for every specimen")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the report to a file instead of stdout")
	return cmd
}

func readBatch(cmd *cobra.Command, path string) (specimen.Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return specimen.Batch{}, errors.Wrapf(err, "failed to read batch %s", path)
		}
		var batch specimen.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			return specimen.Batch{}, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to parse batch %s: %w", path, err))
		}
		return batch, nil
	default:
		return excel.NewSpecimenReader(excel.DefaultReaderConfig(path)).ReadBatch(cmd.Context())
	}
}

func newSpeciesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "species",
		Short: "List the reference species",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			profiles := svc.Species()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), profiles)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-28s %-26s %-14s %6s  %s\n", "ID", "COMMON NAME", "FAMILY", "BASE", "TIER")
			for _, p := range profiles {
				fmt.Fprintf(out, "%-28s %-26s %-14s %5.1f°  %s\n", p.ID, p.CommonName, p.Family, p.BaseTempC, p.Tier)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}
