package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

var alertInstant = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func exceededDecision() analysis.AlertDecision {
	return analysis.AlertDecision{
		DurationResult: analysis.DurationResult{
			DriverID:           "d-1",
			DriverName:         "Alice Carter",
			IsInPC:             true,
			ConsecutivePCHours: 18.5,
			PCStartTime:        alertInstant.Add(-(18*time.Hour + 30*time.Minute)),
		},
		ExceedsThreshold: true,
		ThresholdHours:   16,
	}
}

func diagnosticDecision() analysis.AlertDecision {
	decision := exceededDecision()
	decision.DriverID = "d-2"
	decision.DriverName = "Bob Reyes"
	decision.ConsecutivePCHours = 2
	decision.ExceedsThreshold = false
	return decision
}

type recordingSink struct {
	name      string
	delivered []string
	err       error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, decision analysis.AlertDecision) error {
	s.delivered = append(s.delivered, decision.DriverID)
	return s.err
}

func TestWebhookSinkPayload(t *testing.T) {
	payloadCh := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL, WithWebhookClock(fixedClock{at: alertInstant}))
	if err != nil {
		t.Fatalf("new webhook sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), exceededDecision()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	payload := <-payloadCh
	if payload["alert_type"] != "pc_duration_exceeded" {
		t.Fatalf("unexpected alert_type %v", payload["alert_type"])
	}
	if payload["timestamp"] != "2026-03-10T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", payload["timestamp"])
	}
	if payload["driver_id"] != "d-1" || payload["driver_name"] != "Alice Carter" {
		t.Fatalf("decision fields missing from payload: %v", payload)
	}
	if payload["consecutive_pc_hours"].(float64) != 18.5 {
		t.Fatalf("unexpected hours %v", payload["consecutive_pc_hours"])
	}
	if payload["exceeds_threshold"] != true || payload["threshold_hours"].(float64) != 16 {
		t.Fatalf("threshold fields missing from payload: %v", payload)
	}
}

func TestWebhookSinkNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL)
	if err != nil {
		t.Fatalf("new webhook sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), exceededDecision()); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestConsoleSinkRendersAlert(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	sink, err := NewConsoleSink(logger, nil, WithConsoleClock(fixedClock{at: alertInstant}))
	if err != nil {
		t.Fatalf("new console sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), exceededDecision()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	output := buf.String()
	for _, want := range []string{
		"Driver: Alice Carter",
		"Driver ID: d-1",
		"Consecutive PC Hours: 18.50",
		"Threshold: 16 hours",
		"Alert Time: 2026-03-10T12:00:00Z",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q:\n%s", want, output)
		}
	}
}

func TestConsoleSinkSummary(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewConsoleSink(log.New(&buf, "", 0), nil)
	if err != nil {
		t.Fatalf("new console sink: %v", err)
	}
	summary := analysis.AnalysisSummary{
		DriversChecked:     12,
		DriversInPC:        3,
		AlertsTriggered:    1,
		ThresholdHours:     16,
		DriversInViolation: []string{"Alice Carter (18.50h)"},
	}
	if err := sink.DeliverSummary(context.Background(), summary); err != nil {
		t.Fatalf("deliver summary: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Drivers Checked: 12", "Drivers in PC: 3", "Alerts Triggered: 1", "Alice Carter (18.50h)"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary output missing %q:\n%s", want, output)
		}
	}
}

func TestEmailSinkMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sink, err := NewEmailSink("smtp.example.com", 587, "user", "pass", "alerts@example.com",
		[]string{"ops@example.com", " dispatch@example.com ", ""}, nil,
		WithEmailClock(fixedClock{at: alertInstant}),
		WithSendFunc(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr = addr
			gotFrom = from
			gotTo = to
			gotMsg = msg
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("new email sink: %v", err)
	}
	if err := sink.Deliver(context.Background(), exceededDecision()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "alerts@example.com" {
		t.Fatalf("unexpected send target %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 2 || gotTo[0] != "ops@example.com" || gotTo[1] != "dispatch@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	message := string(gotMsg)
	if !strings.Contains(message, "Subject: PC Duration Alert - Alice Carter") {
		t.Fatalf("subject missing from message:\n%s", message)
	}
	if !strings.Contains(message, "Consecutive PC Hours: 18.50") {
		t.Fatalf("body missing from message:\n%s", message)
	}
}

func TestNotifierDiagnosticFiltering(t *testing.T) {
	console := &recordingSink{name: "console"}
	webhook := &recordingSink{name: "webhook"}
	notifier, err := NewNotifier(
		Binding{Sink: console, DeliverDiagnostics: true},
		Binding{Sink: webhook, DeliverDiagnostics: false},
	)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	report := notifier.SendAlerts(context.Background(), []analysis.AlertDecision{exceededDecision(), diagnosticDecision()})
	if report.TotalAlerts != 2 || report.Successful != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(console.delivered) != 2 {
		t.Fatalf("console should receive both decisions, got %v", console.delivered)
	}
	if len(webhook.delivered) != 1 || webhook.delivered[0] != "d-1" {
		t.Fatalf("webhook should only receive the exceeded decision, got %v", webhook.delivered)
	}
}

func TestNotifierSinkFailureIsolated(t *testing.T) {
	failing := &recordingSink{name: "webhook", err: errors.New("boom")}
	healthy := &recordingSink{name: "console"}
	notifier, err := NewNotifier(
		Binding{Sink: failing, DeliverDiagnostics: true},
		Binding{Sink: healthy, DeliverDiagnostics: true},
	)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	report := notifier.SendAlerts(context.Background(), []analysis.AlertDecision{exceededDecision()})
	if report.Failed != 1 || report.Successful != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(healthy.delivered) != 1 {
		t.Fatalf("healthy sink must still deliver, got %v", healthy.delivered)
	}
	result := report.Results[0]
	if len(result.Results) != 2 {
		t.Fatalf("expected two channel results, got %+v", result)
	}
	if result.Results[0].OK || result.Results[0].Error == "" {
		t.Fatalf("expected failing channel recorded, got %+v", result.Results[0])
	}
	if !result.Results[1].OK {
		t.Fatalf("expected healthy channel recorded ok, got %+v", result.Results[1])
	}
}

func TestNotifierRequiresSinks(t *testing.T) {
	if _, err := NewNotifier(); err == nil {
		t.Fatalf("expected error for empty notifier")
	}
}
