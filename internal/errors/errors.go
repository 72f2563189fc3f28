// Package errors provides structured error types and exit codes for calcheck.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (check failed, solver failed, etc.)
	ExitConfigError      = 2 // Configuration error (invalid config or suite)
	ExitEnvironmentError = 3 // Environment error (solver executable missing, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindSolver
	KindEnvironment
)

func (k ErrorKind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindSolver:
		return "solver"
	case KindEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// CalcheckError is the base error type for calcheck.
type CalcheckError struct {
	Kind    ErrorKind
	Message string
	Case    string // Scenario case name if applicable
	Cause   error  // Underlying error
}

func (e *CalcheckError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Case != "" {
		return fmt.Sprintf("[%s] %s", e.Case, msg)
	}
	return msg
}

func (e *CalcheckError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *CalcheckError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *CalcheckError {
	return &CalcheckError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *CalcheckError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *CalcheckError {
	return &CalcheckError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *CalcheckError {
	return Config(fmt.Sprintf(format, args...))
}

// Validation creates a validation error wrapping its cause.
func Validation(message string, cause error) *CalcheckError {
	return &CalcheckError{
		Kind:    KindValidation,
		Message: message,
		Cause:   cause,
	}
}

// Solver creates an error for a solver invocation that ran but failed.
func Solver(message string, cause error) *CalcheckError {
	return &CalcheckError{
		Kind:    KindSolver,
		Message: message,
		Cause:   cause,
	}
}

// Environment creates a new environment error.
func Environment(message string, cause error) *CalcheckError {
	return &CalcheckError{
		Kind:    KindEnvironment,
		Message: message,
		Cause:   cause,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *CalcheckError {
	return &CalcheckError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// InCase attaches a scenario case name to err. Non-calcheck errors are
// wrapped as runtime errors.
func InCase(name string, err error) *CalcheckError {
	var ce *CalcheckError
	if errors.As(err, &ce) {
		out := *ce
		out.Case = name
		return &out
	}
	return &CalcheckError{Kind: KindRuntime, Message: "case failed", Case: name, Cause: err}
}

// NotFound creates a not found error.
func NotFound(what, name string) *CalcheckError {
	return &CalcheckError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// IsKind reports whether err is, or wraps, a CalcheckError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ce *CalcheckError
	return errors.As(err, &ce) && ce.Kind == k
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ce *CalcheckError
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return ExitRuntimeError
}
