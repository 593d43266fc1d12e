package analysis

import "time"

// DutyStatus is a driver's HOS duty-status classification. The values match
// the hosStatusType strings reported by the telemetry provider.
type DutyStatus string

const (
	StatusPersonalConveyance DutyStatus = "personalConveyance"
	StatusDriving            DutyStatus = "driving"
	StatusOnDuty             DutyStatus = "onDuty"
	StatusOffDuty            DutyStatus = "offDuty"
	StatusSleeperBerth       DutyStatus = "sleeperBerth"
	StatusUnknown            DutyStatus = "unknown"
)

// ParseDutyStatus maps a provider status string to a DutyStatus, falling back
// to StatusUnknown for anything unrecognized.
func ParseDutyStatus(value string) DutyStatus {
	switch DutyStatus(value) {
	case StatusPersonalConveyance, StatusDriving, StatusOnDuty, StatusOffDuty, StatusSleeperBerth:
		return DutyStatus(value)
	default:
		return StatusUnknown
	}
}

// DriverStatusRecord is one driver's current duty status as reported by the
// data source. StatusStartTime is zero when the provider did not supply a
// usable timestamp. Tags carry the driver's tag ids for alert filtering.
type DriverStatusRecord struct {
	DriverID        string
	DriverName      string
	CurrentStatus   DutyStatus
	StatusStartTime time.Time
	Tags            []string
}
