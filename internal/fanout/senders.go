package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"notify-pipeline/internal/email"
	"notify-pipeline/internal/models"
)

// ErrNoAddress is returned when a recipient has no email address.
var ErrNoAddress = errors.New("no email address for recipient")

// EmailSender delivers notifications by email to the address the pipeline
// resolved into the notification, or the recipient id itself when it is an
// address.
type EmailSender struct {
	mail email.Sender
}

// NewEmailSender returns an EmailSender backed by mail.
func NewEmailSender(mail email.Sender) *EmailSender {
	return &EmailSender{mail: mail}
}

// Send mails the notification subject and body. It fails with ErrNoAddress
// when no address is known.
func (s *EmailSender) Send(ctx context.Context, n models.Notification) error {
	to := address(n)
	if to == "" {
		return fmt.Errorf("%w %q", ErrNoAddress, n.Recipient)
	}
	return s.mail.Send(ctx, to, n.Metadata.Subject, n.Metadata.Body)
}

// address returns the email address a notification should be mailed to.
func address(n models.Notification) string {
	if n.RecipientEmail != "" {
		return n.RecipientEmail
	}
	if strings.Contains(n.Recipient, "@") {
		return n.Recipient
	}
	return ""
}

// SlackPoster posts a message to a fixed channel.
type SlackPoster interface {
	Post(ctx context.Context, text string) error
}

// SlackSender relays notifications to a shared Slack channel.
type SlackSender struct {
	poster SlackPoster
}

// NewSlackSender returns a SlackSender posting through poster.
func NewSlackSender(poster SlackPoster) *SlackSender {
	return &SlackSender{poster: poster}
}

// Send posts the notification formatted by SlackText.
func (s *SlackSender) Send(ctx context.Context, n models.Notification) error {
	return s.poster.Post(ctx, SlackText(n))
}

// SlackText formats a notification for Slack.
func SlackText(n models.Notification) string {
	return fmt.Sprintf("*%s* (%s, for %s)\n%s", n.Metadata.Subject, n.Priority, n.Recipient, n.Metadata.Body)
}

// LogSender stands in for providers without a client (sms, push).
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a LogSender writing to logger.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log_sender")}
}

// Send logs the notification and always succeeds.
func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("Notification sent",
		zap.String("notification_id", n.NotificationID),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Metadata.Subject),
	)
	return nil
}
