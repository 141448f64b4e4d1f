package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel every configuration error unwraps to.
// Configuration errors are raised before any loop iteration and are never retried.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError describes a single invalid configuration value.
type ConfigError struct {
	Field  string // Configuration field (e.g. "model")
	Value  string // Offending value as supplied
	Reason string // Human-readable explanation
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// NewConfigError creates a new ConfigError.
func NewConfigError(field, value, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}
