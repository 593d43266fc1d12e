package application

import (
	analysis "fleet-pc-alert/internal/analysis/domain"
)

// EvaluatePolicy applies the alerting policy to one duration result and
// returns the alert decision, if any. It is a pure function of its inputs.
//
// The threshold comparison is strictly greater-than: a driver at exactly the
// threshold does not alert. Anomalous results never set ExceedsThreshold;
// with IncludeAllPCDrivers they still surface as diagnostic decisions so an
// operator can see drivers whose duration could not be measured.
func EvaluatePolicy(result analysis.DurationResult, tags []string, cfg analysis.Config) (analysis.AlertDecision, bool) {
	if !result.IsInPC {
		return analysis.AlertDecision{}, false
	}
	if len(cfg.DriverTagIDs) > 0 && !tagsIntersect(tags, cfg.DriverTagIDs) {
		return analysis.AlertDecision{}, false
	}

	decision := analysis.AlertDecision{
		DurationResult: result,
		ThresholdHours: cfg.ThresholdHours,
	}
	if !result.Anomalous {
		decision.ExceedsThreshold = result.ConsecutivePCHours > cfg.ThresholdHours
	}
	if decision.ExceedsThreshold || cfg.IncludeAllPCDrivers {
		return decision, true
	}
	return analysis.AlertDecision{}, false
}

func tagsIntersect(tags, filter []string) bool {
	if len(tags) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(filter))
	for _, id := range filter {
		allowed[id] = struct{}{}
	}
	for _, tag := range tags {
		if _, ok := allowed[tag]; ok {
			return true
		}
	}
	return false
}
