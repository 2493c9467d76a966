package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInputValidation = errors.New("input validation failed")
	ErrUnknownSpecies  = fmt.Errorf("%w: unknown species", ErrInputValidation)
	ErrUnknownStage    = fmt.Errorf("%w: unknown stage", ErrInputValidation)
	ErrLengthRange     = fmt.Errorf("%w: length out of range", ErrInputValidation)

	// Model errors
	ErrNonViableTemperature = errors.New("effective temperature is not viable for development")
	ErrUnknownMethod        = errors.New("unknown method variant")

	// Batch errors
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Simulation warnings
	ErrConvergence = errors.New("monte carlo simulation did not converge")
)

// Error constructors with context
func NewInputValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInputValidation, field, reason)
}

func NewUnknownSpeciesError(species string) error {
	return fmt.Errorf("%w %q", ErrUnknownSpecies, species)
}

func NewUnknownStageError(stage string) error {
	return fmt.Errorf("%w %q", ErrUnknownStage, stage)
}

func NewLengthRangeError(lengthMM, maxMM float64) error {
	return fmt.Errorf("%w: %.2f mm (accepted 0 < length <= %.0f)", ErrLengthRange, lengthMM, maxMM)
}

func NewNonViableTemperatureError(ambient, base float64) error {
	return fmt.Errorf("%w: ambient %.2f°C <= base %.2f°C", ErrNonViableTemperature, ambient, base)
}

func NewUnknownMethodError(method string) error {
	return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

func NewInsufficientDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, reason)
}

func NewConvergenceWarning(trials int, reason string) error {
	return fmt.Errorf("%w after %d trials: %s", ErrConvergence, trials, reason)
}

// Error checking helpers
func IsInputValidationError(err error) bool {
	return errors.Is(err, ErrInputValidation)
}

func IsNonViableTemperatureError(err error) bool {
	return errors.Is(err, ErrNonViableTemperature)
}

func IsUnknownMethodError(err error) bool {
	return errors.Is(err, ErrUnknownMethod)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsConvergenceWarning(err error) bool {
	return errors.Is(err, ErrConvergence)
}
