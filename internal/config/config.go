package config

import "github.com/liyecom/adpilot/internal/playbook"

// Config holds all configuration for the application
type Config struct {
	// DataDir is the directory where outcome events are stored
	DataDir string

	// PlaybookDir is the directory containing playbook YAML documents
	PlaybookDir string

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string

	// Execution is the controlled-automation configuration
	Execution ExecutionConfig

	// WatchPlaybooks enables hot reload of the playbook directory
	WatchPlaybooks bool

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string

	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string
}

// ExecutionConfig controls how the action executor behaves. It is
// passed by value through every call so tests can construct independent
// configurations without cross-test leakage, and the executor reads it
// fresh at the start of each invocation rather than caching it.
type ExecutionConfig struct {
	// Profile is the active threshold profile name
	Profile string

	// KillSwitchEnabled must be true for any auto execution. When false
	// the executor fails safe to suggest-only, never silently auto-runs.
	KillSwitchEnabled bool

	// ForceDryRun routes every would-be auto execution through the
	// dry-run path. Used by demos and tests; no input can override it
	// back to a real write.
	ForceDryRun bool
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return NewConfigError("DataDir must not be empty")
	}

	if c.PlaybookDir == "" {
		return NewConfigError("PlaybookDir must not be empty")
	}

	if err := c.Execution.Validate(); err != nil {
		return err
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}

// Validate checks the execution configuration
func (c ExecutionConfig) Validate() error {
	valid := false
	for _, name := range playbook.ProfileNames {
		if c.Profile == name {
			valid = true
			break
		}
	}
	if !valid {
		return NewConfigError("Profile must be one of: conservative, balanced, aggressive")
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
