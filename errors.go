package suitetester

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/suite-tester/exitcodes"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// RuntimeError represents an error that keeps a run from completing and leads
// to exit code 2. Configuration, discovery, plugin contract and
// infrastructure errors are wrapped in it.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError signals a completed run with failed or erroneous tests (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps the error of a run to the exit code of the process
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err),
		types.IsConfigurationError(err),
		types.IsDiscoveryError(err),
		types.IsPluginContractError(err),
		types.IsInfrastructureError(err):
		return exitcodes.RuntimeErr
	default:
		return exitcodes.TestFailure
	}
}
