package types

import (
	"errors"
	"fmt"
)

// ConfigurationError is raised before dispatch for invalid run parameters,
// an ambiguous batch type or a type that cannot be resolved.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a ConfigurationError from a format string
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Err: fmt.Errorf(format, args...)}
}

// IsConfigurationError checks if the error is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return err != nil && errors.As(err, &target)
}

// DiscoveryError is raised when discovered documents cannot be turned into a test batch
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a DiscoveryError from a format string
func NewDiscoveryError(format string, args ...any) *DiscoveryError {
	return &DiscoveryError{Err: fmt.Errorf(format, args...)}
}

// IsDiscoveryError checks if the error is or wraps a DiscoveryError
func IsDiscoveryError(err error) bool {
	var target *DiscoveryError
	return err != nil && errors.As(err, &target)
}

// PluginContractError is raised when a plugin reference does not resolve to a
// registered implementation or the implementation breaks its contract.
type PluginContractError struct {
	Plugin string
	Err    error
}

func (e *PluginContractError) Error() string {
	return fmt.Sprintf("plugin contract error (%s): %v", e.Plugin, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *PluginContractError) Unwrap() error {
	return e.Err
}

// NewPluginContractError creates a PluginContractError for the named plugin
func NewPluginContractError(plugin string, format string, args ...any) *PluginContractError {
	return &PluginContractError{Plugin: plugin, Err: fmt.Errorf(format, args...)}
}

// IsPluginContractError checks if the error is or wraps a PluginContractError
func IsPluginContractError(err error) bool {
	var target *PluginContractError
	return err != nil && errors.As(err, &target)
}

// InfrastructureError is raised for filesystem, archive and coordinator failures
// that affect the run as a whole rather than a single test.
type InfrastructureError struct {
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructureError wraps err in an InfrastructureError
func NewInfrastructureError(err error) *InfrastructureError {
	return &InfrastructureError{Err: err}
}

// IsInfrastructureError checks if the error is or wraps an InfrastructureError
func IsInfrastructureError(err error) bool {
	var target *InfrastructureError
	return err != nil && errors.As(err, &target)
}
