package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the sredeploy CLI
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled
	ErrCancelled = errors.New("operation cancelled")

	// ErrClusterNotRunning indicates the cluster control plane is not reachable
	ErrClusterNotRunning = errors.New("cluster not running")

	// ErrStepFailed indicates a required deployment step failed
	ErrStepFailed = errors.New("required step failed")

	// ErrReadinessTimeout indicates a workload never reached the expected state in time
	ErrReadinessTimeout = errors.New("readiness deadline exceeded")

	// ErrTunnelNotAlive indicates a port-forward process died right after spawn
	ErrTunnelNotAlive = errors.New("tunnel process not alive")
)

// StepError wraps an error with deployment step context
type StepError struct {
	StepName string
	Err      error
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.StepName, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *StepError) Unwrap() error {
	return e.Err
}

// WrapStepError wraps an error with step context
func WrapStepError(stepName string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{
		StepName: stepName,
		Err:      err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled checks if an error is a cancellation error
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsReadinessTimeout checks if an error is a readiness timeout
func IsReadinessTimeout(err error) bool {
	return errors.Is(err, ErrReadinessTimeout)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsReadinessTimeout(err):
		return "Workload did not become ready in time. Inspect pod status and consider increasing the readiness timeout."
	case IsTimeout(err):
		return "Operation timed out. Please try again or increase the timeout value in configuration."
	case IsCancelled(err):
		return "Operation was cancelled."
	case errors.Is(err, ErrClusterNotRunning):
		return "Minikube is not running. Start it with 'sredeploy cluster start'."
	case errors.Is(err, ErrStepFailed):
		return "A required deployment step failed. See the sequence report for details."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Please check your config file and command-line flags."
	default:
		return err.Error()
	}
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
