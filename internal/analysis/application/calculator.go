package application

import (
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// ComputeDuration derives a DurationResult for one record at the evaluation
// instant now. Duration is literal wall-clock elapsed time in UTC; there is
// no HOS-rule adjustment such as subtracting off-duty breaks.
//
// Data problems are degraded, never fatal: a PC record without a usable
// start time keeps IsInPC=true for the summary counters but reports zero
// hours with Anomalous set, and a start time after now (clock skew or
// malformed upstream data) clamps to zero hours while keeping the reported
// start time for auditing.
func ComputeDuration(record analysis.DriverStatusRecord, now time.Time) analysis.DurationResult {
	result := analysis.DurationResult{
		DriverID:   record.DriverID,
		DriverName: record.DriverName,
	}
	if record.CurrentStatus != analysis.StatusPersonalConveyance {
		return result
	}
	result.IsInPC = true

	start := record.StatusStartTime
	if start.IsZero() {
		result.Anomalous = true
		return result
	}
	start = start.UTC()
	now = now.UTC()
	result.PCStartTime = start

	if start.After(now) {
		result.Anomalous = true
		return result
	}
	result.ConsecutivePCHours = now.Sub(start).Hours()
	return result
}
