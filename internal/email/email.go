// Package email sends plain-text mail through Amazon SES.
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// ErrNoFromAddress is returned when no sender address is configured.
var ErrNoFromAddress = errors.New("email: SES_FROM_EMAIL is not set")

// Sender delivers one message to one address.
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESSender struct {
	client    SESAPI
	fromEmail string
}

// NewSESSender builds a sender from an AWS config.
func NewSESSender(cfg aws.Config, fromEmail string) (*SESSender, error) {
	return NewSESSenderWithClient(sesv2.NewFromConfig(cfg), fromEmail)
}

// NewSESSenderWithClient wraps an existing client.
func NewSESSenderWithClient(client SESAPI, fromEmail string) (*SESSender, error) {
	if fromEmail == "" {
		return nil, ErrNoFromAddress
	}
	return &SESSender{client: client, fromEmail: fromEmail}, nil
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}
