package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
	"time"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// DefaultTemplate renders the alert body delivered to console and email
// sinks. Webhook sinks send the structured payload instead.
const DefaultTemplate = `[PC Duration Alert]
Driver: {{.DriverName}}
Driver ID: {{.DriverID}}
Consecutive PC Hours: {{.Hours}}
Threshold: {{.Threshold}} hours
PC Started: {{.PCStart}}
Alert Time: {{.AlertTime}}
{{- if .Diagnostic }}
Note: below threshold (diagnostic entry)
{{- end }}
{{- if .Anomalous }}
Note: status start time missing or invalid, duration unmeasured
{{- end }}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	DriverID   string
	DriverName string
	Hours      string
	Threshold  string
	PCStart    string
	AlertTime  string
	Diagnostic bool
	Anomalous  bool
}

// Template renders alert notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("pc-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to one decision at the given alert time.
func (t *Template) Render(decision analysis.AlertDecision, alertTime time.Time) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, buildTemplateData(decision, alertTime)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildTemplateData(decision analysis.AlertDecision, alertTime time.Time) TemplateData {
	name := decision.DriverName
	if name == "" {
		name = "Unknown Driver"
	}
	pcStart := "unknown"
	if !decision.PCStartTime.IsZero() {
		pcStart = decision.PCStartTime.UTC().Format(time.RFC3339)
	}
	return TemplateData{
		DriverID:   decision.DriverID,
		DriverName: name,
		Hours:      fmt.Sprintf("%.2f", decision.ConsecutivePCHours),
		Threshold:  fmt.Sprintf("%g", decision.ThresholdHours),
		PCStart:    pcStart,
		AlertTime:  alertTime.UTC().Format(time.RFC3339),
		Diagnostic: !decision.ExceedsThreshold,
		Anomalous:  decision.Anomalous,
	}
}
