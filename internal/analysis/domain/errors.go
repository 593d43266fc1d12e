package analysis

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks configuration-level failures. Per-record data
// problems are never errors; the calculator folds them into the Anomalous
// flag instead.
var ErrConfiguration = errors.New("analysis: invalid configuration")

// ConfigurationError describes a rejected configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("analysis: invalid configuration: %s %s", e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
