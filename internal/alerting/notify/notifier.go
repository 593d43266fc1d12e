package notify

import (
	"context"
	"errors"

	analysis "fleet-pc-alert/internal/analysis/domain"
	"fleet-pc-alert/internal/observability/metrics"
)

// Binding couples a sink with its delivery policy. Diagnostic decisions
// (exceeds_threshold=false, emitted by the include-all-PC-drivers mode) only
// reach sinks bound with DeliverDiagnostics.
type Binding struct {
	Sink               Sink
	DeliverDiagnostics bool
}

// ChannelResult is the outcome of one delivery attempt on one channel.
type ChannelResult struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// DecisionDelivery groups per-channel outcomes for one alert decision.
type DecisionDelivery struct {
	DriverID string          `json:"driver_id"`
	Results  []ChannelResult `json:"results"`
}

// DeliveryReport summarizes the fan-out of one run's decisions.
type DeliveryReport struct {
	TotalAlerts int                `json:"total_alerts"`
	Successful  int                `json:"successful"`
	Failed      int                `json:"failed"`
	Results     []DecisionDelivery `json:"results"`
}

// Notifier fans alert decisions out to the bound sinks. A failing sink never
// blocks the others; per-channel outcomes are collected in the report.
type Notifier struct {
	bindings []Binding
}

// NewNotifier constructs a notifier over the given bindings.
func NewNotifier(bindings ...Binding) (*Notifier, error) {
	active := make([]Binding, 0, len(bindings))
	for _, binding := range bindings {
		if binding.Sink != nil {
			active = append(active, binding)
		}
	}
	if len(active) == 0 {
		return nil, errors.New("notifier: no sinks configured")
	}
	return &Notifier{bindings: active}, nil
}

// SendAlerts delivers every decision to every eligible sink.
func (n *Notifier) SendAlerts(ctx context.Context, decisions []analysis.AlertDecision) DeliveryReport {
	report := DeliveryReport{TotalAlerts: len(decisions)}
	if n == nil {
		return report
	}
	for _, decision := range decisions {
		delivery := DecisionDelivery{DriverID: decision.DriverID}
		failed := false
		for _, binding := range n.bindings {
			if !decision.ExceedsThreshold && !binding.DeliverDiagnostics {
				continue
			}
			err := binding.Sink.Deliver(ctx, decision)
			metrics.IncDelivery(binding.Sink.Name(), err)
			result := ChannelResult{Channel: binding.Sink.Name(), OK: err == nil}
			if err != nil {
				result.Error = err.Error()
				failed = true
			}
			delivery.Results = append(delivery.Results, result)
		}
		report.Results = append(report.Results, delivery)
		if failed {
			report.Failed++
		} else {
			report.Successful++
		}
	}
	return report
}

// SendSummary delivers the run summary to every sink that accepts one.
func (n *Notifier) SendSummary(ctx context.Context, summary analysis.AnalysisSummary) {
	if n == nil {
		return
	}
	for _, binding := range n.bindings {
		if sink, ok := binding.Sink.(SummarySink); ok {
			if err := sink.DeliverSummary(ctx, summary); err != nil {
				metrics.IncDelivery(binding.Sink.Name(), err)
			}
		}
	}
}
