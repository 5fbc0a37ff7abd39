// Package slack delivers run failure notifications to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/target/gradesync/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL      string
	Channel         string
	Username        string
	Timeout         time.Duration
	RetryLimit      int
	Client          *http.Client
	CourseURLPrefix string
}

// Client delivers run failure notifications to a Slack webhook.
type Client struct {
	webhookURL      string
	channel         string
	username        string
	courseURLPrefix string
	delivery        notify.Delivery
}

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		webhookURL:      webhookURL,
		channel:         strings.TrimSpace(cfg.Channel),
		username:        notify.Fallback(strings.TrimSpace(cfg.Username), "gradesync"),
		courseURLPrefix: strings.TrimSpace(cfg.CourseURLPrefix),
		delivery:        notify.Delivery{Name: "slack webhook", Client: hc, RetryLimit: cfg.RetryLimit},
	}, nil
}

// SendRunFailure posts a formatted message to Slack.
func (c *Client) SendRunFailure(ctx context.Context, payload notify.RunFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return c.delivery.Post(ctx, c.webhookURL, body)
}

func (c *Client) formatMessage(payload notify.RunFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Grade sync ")
	text.WriteString(notify.Fallback(payload.Outcome, "failed"))
	text.WriteString("*")
	if payload.RunID != "" {
		text.WriteString(" `" + payload.RunID + "`")
	}
	text.WriteByte('\n')

	fields := []struct{ label, value string }{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Course", c.courseValue(payload.CourseID)},
		{"Strategy", payload.Strategy},
		{"Error class", payload.ErrorClass},
		{"Error", escape(payload.Error)},
	}
	for _, f := range fields {
		appendField(&text, f.label, f.value)
	}
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

// courseValue links the course id when a URL prefix is configured.
func (c *Client) courseValue(courseID string) string {
	id := escape(strings.TrimSpace(courseID))
	if id == "" {
		return ""
	}
	link := c.courseLink(strings.TrimSpace(courseID))
	if link == "" {
		return id
	}
	return fmt.Sprintf("<%s|%s>", link, id)
}

func (c *Client) courseLink(courseID string) string {
	if c.courseURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.courseURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.JoinPath(courseID).String()
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(value string) string {
	return slackEscaper.Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• " + label + ": " + value + "\n")
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	text.WriteString("• Details:\n")
	for _, k := range keys {
		text.WriteString("    • " + k + ": " + escape(metadata[k]) + "\n")
	}
}
