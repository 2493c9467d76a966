package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"pmiengine/domain/pmi"
	"pmiengine/internal"
	"pmiengine/internal/consensus"
	"pmiengine/internal/errors"
	"pmiengine/internal/estimator"
	"pmiengine/internal/quality"
	"pmiengine/internal/uncertainty"
)

// Config represents the complete application configuration
type Config struct {
	Engine     EngineConfig
	MonteCarlo MonteCarloConfig
	Consensus  ConsensusConfig
	Quality    QualityConfig
	Server     ServerConfig
	Data       DataConfig
	Log        LogConfig
}

// EngineConfig holds estimation defaults
type EngineConfig struct {
	DefaultMethod string `validate:"required"`
	Workers       int    `validate:"gte=0,lte=256"`
	Uncertainty   string `validate:"omitempty,oneof=none analytical monte_carlo"`
}

// MonteCarloConfig holds simulation settings
type MonteCarloConfig struct {
	Trials     int     `validate:"gt=0,lte=1000000"`
	Window     int     `validate:"gt=0,ltefield=Trials"`
	Tolerance  float64 `validate:"gt=0,lt=1"`
	MinSamples int     `validate:"gte=0"`
	Seed       int64
}

// ConsensusConfig holds the conflict thresholds
type ConsensusConfig struct {
	ModerateRangeDays     float64 `validate:"gte=0"`
	SevereRangeDays       float64 `validate:"gtefield=ModerateRangeDays"`
	SpeciesDiversityLimit int     `validate:"gte=1"`
	StageDiversityLimit   int     `validate:"gte=1"`
}

// QualityConfig holds scoring thresholds
type QualityConfig struct {
	CVThreshold float64 `validate:"gt=0,lte=100"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string        `validate:"required,numeric"`
	GinMode        string        `validate:"oneof=debug release test"`
	RequestTimeout time.Duration `validate:"gt=0"`
	MetricsEnabled bool
}

// DataConfig holds data input settings
type DataConfig struct {
	SpecimenFile string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine:     loadEngineConfig(),
		MonteCarlo: loadMonteCarloConfig(),
		Consensus:  loadConsensusConfig(),
		Quality:    loadQualityConfig(),
		Server:     loadServerConfig(),
		Data:       DataConfig{SpecimenFile: getEnvOrDefault("SPECIMEN_FILE", "")},
		Log:        LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultMethod: getEnvOrDefault("PMI_DEFAULT_METHOD", pmi.DefaultMethod.String()),
		Workers:       getEnvIntOrDefault("PMI_WORKERS", 0),
		Uncertainty:   getEnvOrDefault("PMI_UNCERTAINTY", "none"),
	}
}

func loadMonteCarloConfig() MonteCarloConfig {
	def := uncertainty.DefaultSimulationConfig()
	return MonteCarloConfig{
		Trials:     getEnvIntOrDefault("MC_TRIALS", def.Trials),
		Window:     getEnvIntOrDefault("MC_WINDOW", def.Window),
		Tolerance:  getEnvFloatOrDefault("MC_TOLERANCE", def.Tolerance),
		MinSamples: getEnvIntOrDefault("MC_MIN_SAMPLES", def.MinSamples),
		Seed:       int64(getEnvIntOrDefault("MC_SEED", int(def.Seed))),
	}
}

func loadConsensusConfig() ConsensusConfig {
	def := consensus.DefaultConfig()
	return ConsensusConfig{
		ModerateRangeDays:     getEnvFloatOrDefault("CONSENSUS_MODERATE_RANGE_DAYS", def.ModerateRangeDays),
		SevereRangeDays:       getEnvFloatOrDefault("CONSENSUS_SEVERE_RANGE_DAYS", def.SevereRangeDays),
		SpeciesDiversityLimit: getEnvIntOrDefault("CONSENSUS_SPECIES_DIVERSITY_LIMIT", def.SpeciesDiversityLimit),
		StageDiversityLimit:   getEnvIntOrDefault("CONSENSUS_STAGE_DIVERSITY_LIMIT", def.StageDiversityLimit),
	}
}

func loadQualityConfig() QualityConfig {
	return QualityConfig{
		CVThreshold: getEnvFloatOrDefault("QUALITY_CV_THRESHOLD", quality.DefaultCVThreshold),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
		return errors.ConfigInvalid(err.Error())
	}
	if _, err := pmi.ParseMethod(config.Engine.DefaultMethod); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("PMI_DEFAULT_METHOD: %v", err))
	}
	return nil
}

// Method returns the parsed default method; Load has already validated it
func (c *Config) Method() pmi.Method {
	m, err := pmi.ParseMethod(c.Engine.DefaultMethod)
	if err != nil {
		return pmi.DefaultMethod
	}
	return m
}

// UncertaintyMode returns the default interval mode
func (c *Config) UncertaintyMode() estimator.UncertaintyMode {
	mode, err := estimator.ParseUncertaintyMode(c.Engine.Uncertainty)
	if err != nil {
		return estimator.UncertaintyNone
	}
	return mode
}

// Simulation converts the Monte Carlo settings
func (c *Config) Simulation() uncertainty.SimulationConfig {
	return uncertainty.SimulationConfig{
		Trials:     c.MonteCarlo.Trials,
		Window:     c.MonteCarlo.Window,
		Tolerance:  c.MonteCarlo.Tolerance,
		MinSamples: c.MonteCarlo.MinSamples,
		Seed:       c.MonteCarlo.Seed,
	}
}

// ConsensusEngine converts the consensus thresholds and estimate defaults
func (c *Config) ConsensusEngine() consensus.Config {
	cfg := consensus.DefaultConfig()
	cfg.ModerateRangeDays = c.Consensus.ModerateRangeDays
	cfg.SevereRangeDays = c.Consensus.SevereRangeDays
	cfg.SpeciesDiversityLimit = c.Consensus.SpeciesDiversityLimit
	cfg.StageDiversityLimit = c.Consensus.StageDiversityLimit
	cfg.Estimate = estimator.Options{Method: c.Method(), Uncertainty: c.UncertaintyMode()}
	return cfg
}

// Scoring converts the quality thresholds
func (c *Config) Scoring() quality.Config {
	return quality.Config{CVThreshold: c.Quality.CVThreshold}
}

// Logger builds the leveled logger for LOG_LEVEL
func (c *Config) Logger() *internal.Logger {
	return internal.NewLogger(internal.ParseLevel(c.Log.Level))
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
