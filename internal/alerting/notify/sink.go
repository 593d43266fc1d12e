package notify

import (
	"context"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// Sink delivers one alert decision through a channel. Implementations must
// not mutate the decision; every field a renderer needs is already on it.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, decision analysis.AlertDecision) error
}

// SummarySink is implemented by sinks that also accept the run summary.
type SummarySink interface {
	DeliverSummary(ctx context.Context, summary analysis.AnalysisSummary) error
}
