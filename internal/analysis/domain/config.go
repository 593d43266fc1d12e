package analysis

import (
	"fmt"
	"math"
)

// DefaultThresholdHours is the consecutive PC duration after which a driver
// alerts when no threshold is configured.
const DefaultThresholdHours = 16.0

// Config controls one analysis pass. DriverTagIDs, when non-empty, restricts
// alert emission to drivers tagged with at least one of the ids; the summary
// counters still cover every record. IncludeAllPCDrivers is a diagnostic
// mode that emits a decision for every PC driver that passes the tag filter,
// with ExceedsThreshold reflecting the actual comparison.
type Config struct {
	ThresholdHours      float64
	DriverTagIDs        []string
	IncludeAllPCDrivers bool
}

// DefaultConfig returns a config with the stock threshold and no filtering.
func DefaultConfig() Config {
	return Config{ThresholdHours: DefaultThresholdHours}
}

// Validate checks config invariants. A violation is a ConfigurationError and
// fails the whole run before any record is processed.
func (c Config) Validate() error {
	if math.IsNaN(c.ThresholdHours) || math.IsInf(c.ThresholdHours, 0) {
		return &ConfigurationError{Field: "pc_threshold_hours", Reason: "must be a finite number"}
	}
	if c.ThresholdHours <= 0 {
		return &ConfigurationError{Field: "pc_threshold_hours", Reason: fmt.Sprintf("must be positive, got %v", c.ThresholdHours)}
	}
	return nil
}
