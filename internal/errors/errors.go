package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"pmiengine/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped
// AppError or of a recognised domain error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(FromDomain(err)),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Predefined error codes
const (
	CodeInputValidation      = "INPUT_VALIDATION"
	CodeNonViableTemperature = "NON_VIABLE_TEMPERATURE"
	CodeInsufficientData     = "INSUFFICIENT_DATA"
	CodeUnknownMethod        = "UNKNOWN_METHOD"
	CodeConvergence          = "CONVERGENCE_WARNING"
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeCancelled            = "CANCELLED"
	CodeTimeout              = "TIMEOUT"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeUnknown              = "UNKNOWN"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

// FromDomain classifies an error from the engine. AppErrors pass through; domain
// sentinels and context errors get their code; anything else is internal.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	code := CodeInternalError
	switch {
	case core.IsInputValidationError(err):
		code = CodeInputValidation
	case core.IsNonViableTemperatureError(err):
		code = CodeNonViableTemperature
	case core.IsInsufficientDataError(err):
		code = CodeInsufficientData
	case core.IsUnknownMethodError(err):
		code = CodeUnknownMethod
	case core.IsConvergenceWarning(err):
		code = CodeConvergence
	case stderrors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case stderrors.Is(err, context.Canceled):
		code = CodeCancelled
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// HTTPStatus maps an error code onto a response status
func HTTPStatus(code string) int {
	switch code {
	case CodeInputValidation, CodeInvalidInput, CodeUnknownMethod:
		return http.StatusBadRequest
	case CodeNonViableTemperature, CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
