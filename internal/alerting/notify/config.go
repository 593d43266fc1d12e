package notify

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EmailConfig defines the SMTP sink.
type EmailConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	From               string   `yaml:"from"`
	Recipients         []string `yaml:"recipients"`
	DeliverDiagnostics bool     `yaml:"deliver_diagnostics"`
}

// Config defines alert delivery configuration. Console stays on by default;
// webhook and email activate when their targets are configured. Diagnostic
// decisions default to console-only.
type Config struct {
	Console                   bool        `yaml:"console"`
	ConsoleDeliverDiagnostics bool        `yaml:"console_deliver_diagnostics"`
	WebhookURL                string      `yaml:"webhook_url"`
	WebhookDeliverDiagnostics bool        `yaml:"webhook_deliver_diagnostics"`
	Email                     EmailConfig `yaml:"email"`
	Template                  string      `yaml:"template"`
}

// LoadConfig loads delivery config from env, with an optional YAML file at
// PC_ALERT_NOTIFY_CONFIG overriding the env-derived values.
func LoadConfig() (Config, error) {
	cfg := Config{
		Console:                   getenvBoolDefault("ALERT_CONSOLE", true),
		ConsoleDeliverDiagnostics: getenvBoolDefault("ALERT_CONSOLE_DIAGNOSTICS", true),
		WebhookURL:                os.Getenv("WEBHOOK_URL"),
		WebhookDeliverDiagnostics: getenvBoolDefault("ALERT_WEBHOOK_DIAGNOSTICS", false),
		Email: EmailConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       getenvIntDefault("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       os.Getenv("SMTP_FROM"),
			Recipients: splitList(os.Getenv("EMAIL_RECIPIENTS")),
		},
	}

	if path := os.Getenv("PC_ALERT_NOTIFY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("notify config: %w", err)
		}
	}
	return cfg, nil
}

// BuildNotifier assembles the sinks a config enables. At least one sink must
// come out of it; a delivery-less alerter would silently drop alerts.
func BuildNotifier(cfg Config, logger *log.Logger) (*Notifier, error) {
	template, err := NewTemplate(cfg.Template)
	if err != nil {
		return nil, err
	}

	var bindings []Binding
	if cfg.Console {
		console, err := NewConsoleSink(logger, template)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Sink: console, DeliverDiagnostics: cfg.ConsoleDeliverDiagnostics})
	}
	if cfg.WebhookURL != "" {
		webhook, err := NewWebhookSink(cfg.WebhookURL)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Sink: webhook, DeliverDiagnostics: cfg.WebhookDeliverDiagnostics})
	}
	if cfg.Email.Host != "" && len(cfg.Email.Recipients) > 0 {
		email, err := NewEmailSink(cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.Email.Recipients, template)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Sink: email, DeliverDiagnostics: cfg.Email.DeliverDiagnostics})
	}
	return NewNotifier(bindings...)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
