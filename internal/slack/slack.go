// Package slack posts notifications to a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// ErrNotConfigured is returned when the token or channel is missing.
var ErrNotConfigured = errors.New("slack: token and channel are required")

// Poster is the subset of the Slack client used here.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Sender posts messages to one channel.
type Sender struct {
	client  Poster
	channel string
}

// New builds a Sender using the Slack web API.
func New(token, channel string) (*Sender, error) {
	if token == "" || channel == "" {
		return nil, ErrNotConfigured
	}
	return NewWithClient(slackapi.New(token), channel), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Poster, channel string) *Sender {
	return &Sender{client: client, channel: channel}
}

// Post sends text to the configured channel.
func (s *Sender) Post(ctx context.Context, text string) error {
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slackapi.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack post to %s: %w", s.channel, err)
	}
	return nil
}
