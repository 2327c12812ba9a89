package queue

import (
	"context"
	"encoding/json"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kgo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Consumer reads one topic with manual commits.
type Consumer struct {
	reader messageReader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	r := kgo.NewReader(kgo.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
	})
	return &Consumer{reader: r}
}

func (c *Consumer) Close() error { return c.reader.Close() }

// CommitFunc acknowledges a message once it has been handled.
type CommitFunc func(context.Context) error

// ReadNotification consumes a NotificationMessage.
func (c *Consumer) ReadNotification(ctx context.Context) (NotificationMessage, CommitFunc, error) {
	var nm NotificationMessage
	commit, err := c.read(ctx, &nm)
	return nm, commit, err
}

// ReadEscalation consumes an EscalationMessage.
func (c *Consumer) ReadEscalation(ctx context.Context) (EscalationMessage, CommitFunc, error) {
	var em EscalationMessage
	commit, err := c.read(ctx, &em)
	return em, commit, err
}

func (c *Consumer) read(ctx context.Context, v any) (CommitFunc, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(m.Value, v); err != nil {
		// commit bad messages so we don't get stuck on them forever
		_ = c.reader.CommitMessages(ctx, m)
		return nil, err
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return c.reader.CommitMessages(cctx, m)
	}
	return commit, nil
}
