package notify

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

const consoleRule = "============================================================"

// ConsoleSink writes alerts and run summaries to a logger.
type ConsoleSink struct {
	logger   *log.Logger
	template *Template
	clock    Clock
}

// NewConsoleSink constructs a console sink.
func NewConsoleSink(logger *log.Logger, template *Template, opts ...ConsoleOption) (*ConsoleSink, error) {
	if logger == nil {
		return nil, errors.New("console sink: nil logger")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	sink := &ConsoleSink{logger: logger, template: template, clock: systemClock{}}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// ConsoleOption configures the console sink.
type ConsoleOption func(*ConsoleSink)

// WithConsoleClock overrides the default clock.
func WithConsoleClock(clock Clock) ConsoleOption {
	return func(s *ConsoleSink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return "console" }

// Deliver implements Sink.
func (s *ConsoleSink) Deliver(_ context.Context, decision analysis.AlertDecision) error {
	if s == nil || s.logger == nil {
		return errors.New("console sink: nil logger")
	}
	content, err := s.template.Render(decision, s.clock.Now())
	if err != nil {
		return err
	}
	s.logger.Println(consoleRule)
	for _, line := range strings.Split(content, "\n") {
		s.logger.Println(line)
	}
	s.logger.Println(consoleRule)
	return nil
}

// DeliverSummary implements SummarySink.
func (s *ConsoleSink) DeliverSummary(_ context.Context, summary analysis.AnalysisSummary) error {
	if s == nil || s.logger == nil {
		return errors.New("console sink: nil logger")
	}
	s.logger.Println(consoleRule)
	s.logger.Println("PC Duration Analysis Summary")
	s.logger.Printf("Drivers Checked: %d", summary.DriversChecked)
	s.logger.Printf("Drivers in PC: %d", summary.DriversInPC)
	s.logger.Printf("Alerts Triggered: %d", summary.AlertsTriggered)
	s.logger.Printf("Threshold: %g hours", summary.ThresholdHours)
	if len(summary.DriversInViolation) > 0 {
		s.logger.Printf("In Violation: %s", strings.Join(summary.DriversInViolation, ", "))
	}
	s.logger.Println(consoleRule)
	return nil
}

// Clock provides time for alert timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
