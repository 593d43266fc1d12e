package analysis

import "time"

// DurationResult is the calculator's view of one driver: whether they are in
// personal conveyance and for how many consecutive wall-clock hours.
// Anomalous marks records where the start time was missing, unparseable, or
// in the future; their duration is clamped to zero so they never alert.
type DurationResult struct {
	DriverID           string    `json:"driver_id"`
	DriverName         string    `json:"driver_name"`
	IsInPC             bool      `json:"is_currently_in_pc"`
	ConsecutivePCHours float64   `json:"consecutive_pc_hours"`
	PCStartTime        time.Time `json:"pc_start_time,omitempty"`
	Anomalous          bool      `json:"anomalous,omitempty"`
}

// AlertDecision is a DurationResult the policy selected for alerting, plus
// the threshold in effect when the comparison was made. ExceedsThreshold may
// be false for decisions emitted through the include-all-PC-drivers
// diagnostic path.
type AlertDecision struct {
	DurationResult
	ExceedsThreshold bool    `json:"exceeds_threshold"`
	ThresholdHours   float64 `json:"threshold_hours"`
}

// AnalysisSummary aggregates one analysis pass over a batch of records.
// DriversInViolation lists "Name (12.3h)" strings for quick scanning in logs
// and summary notifications.
type AnalysisSummary struct {
	DriversChecked     int      `json:"drivers_checked"`
	DriversInPC        int      `json:"drivers_in_pc"`
	AlertsTriggered    int      `json:"alerts_triggered"`
	ThresholdHours     float64  `json:"threshold_hours"`
	DriversInViolation []string `json:"drivers_in_violation,omitempty"`
}
