package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"notify-pipeline/internal/config"
	"notify-pipeline/internal/email"
	"notify-pipeline/internal/fanout"
	"notify-pipeline/internal/routing"
	"notify-pipeline/internal/slack"
)

// Provider send rates, per second.
const (
	sesRate   = 14
	slackRate = 1
	logRate   = 50
)

// buildDispatcher registers a sender for every enabled channel. Email and
// paging need SES_FROM_EMAIL; slack needs SLACK_TOKEN and SLACK_CHANNEL.
// Channels whose provider is not configured fall back to the log sender.
func buildDispatcher(ctx context.Context, cfg config.Config, logger *zap.Logger) (*fanout.Dispatcher, error) {
	table, err := routing.Load(cfg.RoutingFile)
	if err != nil {
		return nil, err
	}
	logSender := fanout.NewLogSender(logger)

	var mail email.Sender
	if cfg.SESFromEmail != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("worker: load aws config: %w", err)
		}
		ses, err := email.NewSESSender(awsCfg, cfg.SESFromEmail)
		if err != nil {
			return nil, err
		}
		mail = ses
	} else {
		logger.Warn("SES_FROM_EMAIL not set, email and paging are logged only")
	}

	d := fanout.New(logger, logSender, mail)
	if mail != nil {
		d.Register("email", fanout.NewEmailSender(mail), sesRate, 0)
	}

	if cfg.SlackToken != "" {
		s, err := slack.New(cfg.SlackToken, cfg.SlackChannel)
		if err != nil {
			return nil, err
		}
		d.Register("slack", fanout.NewSlackSender(s), slackRate, 0)
	}

	for name, ch := range table.Channels {
		if !ch.Enabled {
			continue
		}
		if name == "email" && mail != nil || name == "slack" && cfg.SlackToken != "" {
			continue
		}
		d.Register(name, logSender, logRate, 0)
	}
	return d, nil
}
