package bootstrap

import (
	"log/slog"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/observability/notify/pagerduty"
	"github.com/target/gradesync/internal/observability/notify/slack"
	"github.com/target/gradesync/internal/observability/statsd"
	"github.com/target/gradesync/internal/service/failurenotifier"
)

// buildMetrics returns a statsd client, or nil when metrics are disabled.
func buildMetrics(logger *slog.Logger, cfg config.MetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

func buildFailureNotifier(logger *slog.Logger, cfg config.AlertConfig) *failurenotifier.Service {
	for _, w := range cfg.Warnings() {
		logger.Warn("alert sink disabled", "reason", w)
	}
	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: logger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)
	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			CourseURLPrefix: cfg.Slack.CourseURLPrefix,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}
	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:          logger,
		Sinks:           sinks,
		SkipUnconfirmed: !cfg.OnUnconfirmed,
	})
}
