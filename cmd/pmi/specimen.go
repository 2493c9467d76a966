package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pmiengine/app"
	"pmiengine/domain/specimen"
	"pmiengine/internal/errors"
	"pmiengine/ports"
)

// specimenFlags are shared by estimate, compare and validate
type specimenFlags struct {
	id          string
	species     string
	stage       string
	lengthMM    float64
	tempC       float64
	dailyMeanC  float64
	observedAt  string
	method      string
	uncertainty string
	seed        int64
	replay      []float64
	asJSON      bool
}

func (f *specimenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "Specimen identifier")
	cmd.Flags().StringVar(&f.species, "species", "", "Species id (see 'pmi species')")
	cmd.Flags().StringVar(&f.stage, "stage", "", "Development stage: 1st_instar|2nd_instar|3rd_instar|pupa")
	cmd.Flags().Float64Var(&f.lengthMM, "length", 0, "Specimen length in mm")
	cmd.Flags().Float64Var(&f.tempC, "temp", 0, "Ambient temperature in °C")
	cmd.Flags().Float64Var(&f.dailyMeanC, "daily-mean", 0, "Daily mean temperature in °C, adjusted by --observed-at")
	cmd.Flags().StringVar(&f.observedAt, "observed-at", "", "Discovery time (RFC3339) for the daily mean adjustment")
	cmd.Flags().StringVar(&f.method, "method", "", "Estimation method (default from PMI_DEFAULT_METHOD)")
	cmd.Flags().StringVar(&f.uncertainty, "uncertainty", "", "Interval mode: none|analytical|monte_carlo")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Monte Carlo seed (default from MC_SEED)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("species")
	_ = cmd.MarkFlagRequired("stage")
}

func (f *specimenFlags) request(cmd *cobra.Command) (app.EstimateRequest, error) {
	req := app.EstimateRequest{
		Specimen: specimen.Input{
			SpecimenID: f.id,
			Species:    f.species,
			Stage:      f.stage,
		},
		Method:      f.method,
		Uncertainty: f.uncertainty,
	}
	if cmd.Flags().Changed("length") {
		v := f.lengthMM
		req.Specimen.LengthMM = &v
	}
	if cmd.Flags().Changed("temp") {
		v := f.tempC
		req.Temperature.ManualC = &v
	}
	if cmd.Flags().Changed("daily-mean") {
		v := f.dailyMeanC
		req.Temperature.DailyMeanC = &v
		observed := time.Now()
		if f.observedAt != "" {
			t, err := time.Parse(time.RFC3339, f.observedAt)
			if err != nil {
				return app.EstimateRequest{}, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("invalid --observed-at (use RFC3339): %w", err))
			}
			observed = t
		}
		req.Temperature.ObservedAt = observed
	}
	if cmd.Flags().Changed("seed") {
		s := f.seed
		req.Seed = &s
	}
	req.ReplayDraws = f.replay
	if req.Temperature.ManualC == nil && req.Temperature.DailyMeanC == nil {
		return app.EstimateRequest{}, errors.InvalidInput("one of --temp or --daily-mean is required")
	}
	return req, nil
}

// sceneTemperature is used by consensus, where the scene temperature is optional
func (f *specimenFlags) sceneTemperature(cmd *cobra.Command) *ports.TemperatureRequest {
	var tr ports.TemperatureRequest
	if cmd.Flags().Changed("temp") {
		v := f.tempC
		tr.ManualC = &v
	}
	if cmd.Flags().Changed("daily-mean") {
		v := f.dailyMeanC
		tr.DailyMeanC = &v
		tr.ObservedAt = time.Now()
		if t, err := time.Parse(time.RFC3339, f.observedAt); err == nil {
			tr.ObservedAt = t
		}
	}
	if tr.ManualC == nil && tr.DailyMeanC == nil {
		return nil
	}
	return &tr
}
