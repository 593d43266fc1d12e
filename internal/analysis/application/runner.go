package application

import (
	"context"
	"fmt"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
	"fleet-pc-alert/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Runner performs one analysis pass over a batch of driver status records.
// A Runner holds no mutable state; concurrent Run calls are safe as long as
// each call gets its own batch and config.
type Runner struct {
	clock Clock
}

// RunnerOption customizes the runner.
type RunnerOption func(*Runner)

// WithClock overrides the default clock.
func WithClock(clock Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRunner constructs a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	runner := &Runner{clock: systemClock{}}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run validates cfg, evaluates every record, and returns the summary plus
// the alert decisions in input order. Configuration problems fail the run
// before any record is processed; per-record anomalies never do. The
// evaluation instant is pinned once so every record in the batch is measured
// against the same "now".
func (r *Runner) Run(ctx context.Context, records []analysis.DriverStatusRecord, cfg analysis.Config) (analysis.AnalysisSummary, []analysis.AlertDecision, error) {
	_ = ctx
	if err := cfg.Validate(); err != nil {
		return analysis.AnalysisSummary{}, nil, err
	}

	now := r.clock.Now().UTC()
	summary := analysis.AnalysisSummary{
		DriversChecked: len(records),
		ThresholdHours: cfg.ThresholdHours,
	}
	var decisions []analysis.AlertDecision

	for _, record := range records {
		result := ComputeDuration(record, now)
		if result.IsInPC {
			summary.DriversInPC++
		}
		if result.Anomalous {
			metrics.IncRecordAnomaly()
		}
		decision, ok := EvaluatePolicy(result, record.Tags, cfg)
		if !ok {
			continue
		}
		decisions = append(decisions, decision)
		if decision.ExceedsThreshold {
			summary.AlertsTriggered++
			summary.DriversInViolation = append(summary.DriversInViolation, violationLabel(decision))
		}
	}

	metrics.ObserveAnalysisRun(summary.DriversChecked, summary.DriversInPC, summary.AlertsTriggered)
	return summary, decisions, nil
}

func violationLabel(decision analysis.AlertDecision) string {
	name := decision.DriverName
	if name == "" {
		name = decision.DriverID
	}
	return fmt.Sprintf("%s (%.2fh)", name, decision.ConsecutivePCHours)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
