package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	analysis "fleet-pc-alert/internal/analysis/domain"
)

// EmailSink sends alerts over SMTP.
type EmailSink struct {
	host       string
	port       int
	username   string
	password   string
	from       string
	recipients []string
	template   *Template
	clock      Clock
	send       func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// EmailOption configures the email sink.
type EmailOption func(*EmailSink)

// WithEmailClock overrides the default clock.
func WithEmailClock(clock Clock) EmailOption {
	return func(s *EmailSink) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSendFunc overrides the SMTP send function.
func WithSendFunc(send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error) EmailOption {
	return func(s *EmailSink) {
		if send != nil {
			s.send = send
		}
	}
}

// NewEmailSink constructs an email sink.
func NewEmailSink(host string, port int, username, password, from string, recipients []string, template *Template, opts ...EmailOption) (*EmailSink, error) {
	if host == "" {
		return nil, errors.New("email sink: empty smtp host")
	}
	if port <= 0 {
		return nil, errors.New("email sink: invalid smtp port")
	}
	if from == "" {
		return nil, errors.New("email sink: empty from address")
	}
	cleaned := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		if trimmed := strings.TrimSpace(recipient); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("email sink: no recipients")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	sink := &EmailSink{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		from:       from,
		recipients: cleaned,
		template:   template,
		clock:      systemClock{},
		send:       smtp.SendMail,
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// Name implements Sink.
func (s *EmailSink) Name() string { return "email" }

// Deliver implements Sink.
func (s *EmailSink) Deliver(_ context.Context, decision analysis.AlertDecision) error {
	if s == nil {
		return errors.New("email sink: nil")
	}
	body, err := s.template.Render(decision, s.clock.Now())
	if err != nil {
		return err
	}
	name := decision.DriverName
	if name == "" {
		name = decision.DriverID
	}
	subject := "PC Duration Alert - " + name

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := s.send(addr, auth, s.from, s.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("email sink: send failed: %w", err)
	}
	return nil
}
