package application

import (
	"testing"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

func pcResult(hours float64) analysis.DurationResult {
	return analysis.DurationResult{
		DriverID:           "d-1",
		DriverName:         "Alice Carter",
		IsInPC:             true,
		ConsecutivePCHours: hours,
		PCStartTime:        time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC),
	}
}

func TestEvaluatePolicySkipsNonPC(t *testing.T) {
	result := analysis.DurationResult{DriverID: "d-1", IsInPC: false}
	if _, ok := EvaluatePolicy(result, nil, analysis.DefaultConfig()); ok {
		t.Fatalf("expected no decision for non-PC driver")
	}
}

func TestEvaluatePolicyThresholdBoundary(t *testing.T) {
	cfg := analysis.Config{ThresholdHours: 16}
	cases := []struct {
		name    string
		hours   float64
		emitted bool
		exceeds bool
	}{
		{"below", 15.99, false, false},
		{"exactly at threshold", 16, false, false},
		{"just above", 16.000001, true, true},
		{"well above", 18.5, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, ok := EvaluatePolicy(pcResult(tc.hours), nil, cfg)
			if ok != tc.emitted {
				t.Fatalf("emitted=%v, want %v", ok, tc.emitted)
			}
			if ok && decision.ExceedsThreshold != tc.exceeds {
				t.Fatalf("exceeds=%v, want %v", decision.ExceedsThreshold, tc.exceeds)
			}
			if ok && decision.ThresholdHours != 16 {
				t.Fatalf("expected threshold echoed, got %v", decision.ThresholdHours)
			}
		})
	}
}

func TestEvaluatePolicyTagFilter(t *testing.T) {
	cfg := analysis.Config{ThresholdHours: 16, DriverTagIDs: []string{"A"}}

	if _, ok := EvaluatePolicy(pcResult(20), []string{"B"}, cfg); ok {
		t.Fatalf("expected tag-filtered driver to be skipped")
	}
	if _, ok := EvaluatePolicy(pcResult(20), nil, cfg); ok {
		t.Fatalf("expected untagged driver to be skipped")
	}
	decision, ok := EvaluatePolicy(pcResult(20), []string{"B", "A"}, cfg)
	if !ok || !decision.ExceedsThreshold {
		t.Fatalf("expected matching driver to alert")
	}
}

func TestEvaluatePolicyIncludeAllPCDrivers(t *testing.T) {
	cfg := analysis.Config{ThresholdHours: 16, IncludeAllPCDrivers: true}

	decision, ok := EvaluatePolicy(pcResult(2), nil, cfg)
	if !ok {
		t.Fatalf("expected diagnostic decision for below-threshold driver")
	}
	if decision.ExceedsThreshold {
		t.Fatalf("diagnostic decision must reflect the real comparison")
	}

	decision, ok = EvaluatePolicy(pcResult(20), nil, cfg)
	if !ok || !decision.ExceedsThreshold {
		t.Fatalf("expected above-threshold decision to keep exceeds=true")
	}
}

func TestEvaluatePolicyAnomalousNeverExceeds(t *testing.T) {
	anomalous := analysis.DurationResult{DriverID: "d-1", IsInPC: true, Anomalous: true}

	if _, ok := EvaluatePolicy(anomalous, nil, analysis.Config{ThresholdHours: 16}); ok {
		t.Fatalf("expected anomalous record skipped without diagnostic mode")
	}

	decision, ok := EvaluatePolicy(anomalous, nil, analysis.Config{ThresholdHours: 16, IncludeAllPCDrivers: true})
	if !ok {
		t.Fatalf("expected diagnostic decision for anomalous record")
	}
	if decision.ExceedsThreshold {
		t.Fatalf("unmeasurable duration must never exceed the threshold")
	}
}
