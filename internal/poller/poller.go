package poller

import (
	"context"
	"errors"
	"log"
	"time"

	"fleet-pc-alert/internal/alerting/notify"
	"fleet-pc-alert/internal/analysis/application"
	analysis "fleet-pc-alert/internal/analysis/domain"
	"fleet-pc-alert/internal/observability/metrics"
)

// Source supplies driver status batches.
type Source interface {
	FetchStatusRecords(ctx context.Context, tagIDs []string) ([]analysis.DriverStatusRecord, error)
}

// Deduper claims PC episodes so repeat runs alert once per episode.
type Deduper interface {
	Claim(ctx context.Context, driverID string, pcStart time.Time) (bool, error)
}

// History persists delivered alert decisions.
type History interface {
	Insert(ctx context.Context, decision analysis.AlertDecision, at time.Time) error
}

// Poller runs the fetch-analyze-alert cycle on an interval. Deduper and
// History are optional; without them every run is stateless and repeat
// alerts across runs are accepted.
type Poller struct {
	source   Source
	runner   *application.Runner
	notifier *notify.Notifier
	cfg      analysis.Config
	interval time.Duration
	deduper  Deduper
	history  History
	logger   *log.Logger
}

// Option configures the poller.
type Option func(*Poller)

// WithDeduper enables episode dedup.
func WithDeduper(deduper Deduper) Option {
	return func(p *Poller) {
		p.deduper = deduper
	}
}

// WithHistory enables alert history persistence.
func WithHistory(history History) Option {
	return func(p *Poller) {
		p.history = history
	}
}

// New constructs a poller.
func New(source Source, runner *application.Runner, notifier *notify.Notifier, cfg analysis.Config, interval time.Duration, logger *log.Logger, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, errors.New("poller: nil source")
	}
	if runner == nil {
		return nil, errors.New("poller: nil runner")
	}
	if notifier == nil {
		return nil, errors.New("poller: nil notifier")
	}
	if logger == nil {
		return nil, errors.New("poller: nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	poller := &Poller{
		source:   source,
		runner:   runner,
		notifier: notifier,
		cfg:      cfg,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller, nil
}

// Start polls until ctx is canceled. Cycle errors are logged, never fatal.
func (p *Poller) Start(ctx context.Context) {
	if p == nil || p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Printf("poll cycle error: %v", err)
			}
		}
	}
}

// RunOnce runs one cycle with the configured analysis settings.
func (p *Poller) RunOnce(ctx context.Context) error {
	summary, _, _, err := p.RunWith(ctx, p.cfg)
	if err != nil {
		return err
	}
	p.logger.Printf("analysis pass: checked=%d in_pc=%d alerts=%d threshold=%gh",
		summary.DriversChecked, summary.DriversInPC, summary.AlertsTriggered, summary.ThresholdHours)
	return nil
}

// RunWith runs one cycle with an explicit config (used by the on-demand API
// with per-request overrides). It fetches a batch, analyzes it, filters
// already-claimed episodes, dispatches the rest, and records history.
func (p *Poller) RunWith(ctx context.Context, cfg analysis.Config) (analysis.AnalysisSummary, []analysis.AlertDecision, notify.DeliveryReport, error) {
	started := time.Now()
	summary, decisions, err := p.run(ctx, cfg)
	metrics.ObservePoll(err, time.Since(started))
	if err != nil {
		return analysis.AnalysisSummary{}, nil, notify.DeliveryReport{}, err
	}

	deliverable := p.filterClaimed(ctx, decisions)
	report := p.notifier.SendAlerts(ctx, deliverable)
	p.notifier.SendSummary(ctx, summary)
	p.record(ctx, deliverable)
	return summary, deliverable, report, nil
}

func (p *Poller) run(ctx context.Context, cfg analysis.Config) (analysis.AnalysisSummary, []analysis.AlertDecision, error) {
	fetchStarted := time.Now()
	records, err := p.source.FetchStatusRecords(ctx, cfg.DriverTagIDs)
	metrics.ObserveFetch(err, time.Since(fetchStarted))
	if err != nil {
		return analysis.AnalysisSummary{}, nil, err
	}
	return p.runner.Run(ctx, records, cfg)
}

// filterClaimed drops threshold-exceeded decisions whose episode was already
// claimed by an earlier run. Diagnostic decisions are visibility entries and
// pass through untouched; dedup errors fail open so a redis outage cannot
// suppress alerts.
func (p *Poller) filterClaimed(ctx context.Context, decisions []analysis.AlertDecision) []analysis.AlertDecision {
	if p.deduper == nil || len(decisions) == 0 {
		return decisions
	}
	kept := decisions[:0:0]
	for _, decision := range decisions {
		if decision.ExceedsThreshold {
			claimed, err := p.deduper.Claim(ctx, decision.DriverID, decision.PCStartTime)
			if err != nil {
				p.logger.Printf("episode dedup error for driver %s: %v", decision.DriverID, err)
			} else if !claimed {
				metrics.IncAlertSuppressed()
				continue
			}
		}
		kept = append(kept, decision)
	}
	return kept
}

func (p *Poller) record(ctx context.Context, decisions []analysis.AlertDecision) {
	if p.history == nil {
		return
	}
	now := time.Now().UTC()
	for _, decision := range decisions {
		if !decision.ExceedsThreshold {
			continue
		}
		if err := p.history.Insert(ctx, decision, now); err != nil {
			p.logger.Printf("alert history insert error for driver %s: %v", decision.DriverID, err)
		}
	}
}
