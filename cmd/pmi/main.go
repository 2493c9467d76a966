package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pmiengine/adapters/api"
	"pmiengine/app"
	"pmiengine/internal/config"
	"pmiengine/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		code := errors.GetCode(err)
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", code, err)
		os.Exit(exitCode(code))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pmi",
		Short:         "Forensic PMI estimation from insect development",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is normal; the environment still applies
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		newEstimateCmd(),
		newCompareCmd(),
		newValidateCmd(),
		newConsensusCmd(),
		newSpeciesCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// exitCode maps error codes onto process exit statuses
func exitCode(code string) int {
	switch code {
	case errors.CodeInputValidation, errors.CodeInvalidInput, errors.CodeUnknownMethod:
		return 2
	case errors.CodeNonViableTemperature, errors.CodeInsufficientData:
		return 3
	case errors.CodeConfigInvalid:
		return 4
	default:
		return 1
	}
}

func loadService() (*app.AnalysisService, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.NewAnalysisService(cfg, app.Dependencies{})
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

// wrap attaches the domain error code so main can report it
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.FromDomain(err)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve /v1/estimate, /v1/compare, /v1/validate, /v1/consensus and /v1/species,
plus /healthz and /metrics.

Example: pmi serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return api.Run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default from PORT)")
	return cmd
}
