package config

import (
	"strings"
	"time"
)

const defaultServiceName = "gradesync"

// ObservabilityConfig groups run metrics and run failure alerting.
type ObservabilityConfig struct {
	Metrics MetricsConfig `envPrefix:"METRICS_"`
	Alerts  AlertConfig   `envPrefix:"ALERT_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Alerts.Sanitize()
}

// MetricsConfig controls statsd emission of run and remote call metrics.
type MetricsConfig struct {
	Enabled       bool   `env:"ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"PREFIX"         envDefault:"gradesync"`
}

// Sanitize trims the address and prefix; an empty address disables metrics.
func (c *MetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// AlertConfig controls who hears about failed and unconfirmed runs.
type AlertConfig struct {
	Enabled       bool                 `env:"ENABLED"        envDefault:"false"`
	// OnUnconfirmed also alerts when writes were issued but never observed.
	OnUnconfirmed bool                 `env:"ON_UNCONFIRMED" envDefault:"true"`
	Timeout       time.Duration        `env:"TIMEOUT"        envDefault:"5s"`
	RetryLimit    int                  `env:"RETRY_LIMIT"    envDefault:"3"`
	Slack         SlackAlertConfig     `envPrefix:"SLACK_"`
	PagerDuty     PagerDutyAlertConfig `envPrefix:"PAGERDUTY_"`

	warnings []string
}

// Sanitize normalises alert settings. A sink switched on without its
// credential is switched off and reported through Warnings.
func (c *AlertConfig) Sanitize() {
	c.warnings = nil
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.RetryLimit = max(c.RetryLimit, 0)

	c.Slack.sanitize()
	c.PagerDuty.sanitize()

	if !c.Enabled {
		c.Slack.Enabled = false
		c.PagerDuty.Enabled = false
		return
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		c.Slack.Enabled = false
		c.warnings = append(c.warnings, "ALERT_SLACK_ENABLED is set without ALERT_SLACK_WEBHOOK_URL")
	}
	if c.PagerDuty.Enabled && c.PagerDuty.RoutingKey == "" {
		c.PagerDuty.Enabled = false
		c.warnings = append(c.warnings, "ALERT_PAGERDUTY_ENABLED is set without ALERT_PAGERDUTY_ROUTING_KEY")
	}
}

// Warnings lists the sinks Sanitize had to switch off.
func (c *AlertConfig) Warnings() []string {
	return c.warnings
}

// SlackAlertConfig targets a Slack incoming webhook.
type SlackAlertConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"gradesync"`
	// CourseURLPrefix turns course ids into links, e.g. https://canvas.example.edu/courses.
	CourseURLPrefix string `env:"COURSE_URL_PREFIX"`
}

func (c *SlackAlertConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.CourseURLPrefix = strings.TrimRight(strings.TrimSpace(c.CourseURLPrefix), "/")
	if c.Username = strings.TrimSpace(c.Username); c.Username == "" {
		c.Username = defaultServiceName
	}
}

// PagerDutyAlertConfig targets the PagerDuty Events API v2.
type PagerDutyAlertConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Component  string `env:"COMPONENT"   envDefault:"grade-sync"`
}

func (c *PagerDutyAlertConfig) sanitize() {
	c.RoutingKey = strings.TrimSpace(c.RoutingKey)
	if c.Component = strings.TrimSpace(c.Component); c.Component == "" {
		c.Component = "grade-sync"
	}
}
