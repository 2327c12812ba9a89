// Package queue carries delivered notifications and escalations from the
// pipeline to the fan-out worker over Kafka.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

// Outbox receives pipeline side effects bound for the fan-out worker.
type Outbox interface {
	PublishNotification(ctx context.Context, msg NotificationMessage) error
	PublishEscalation(ctx context.Context, msg EscalationMessage) error
}

// NopOutbox drops everything. Used when Kafka is not configured.
type NopOutbox struct{}

func (NopOutbox) PublishNotification(context.Context, NotificationMessage) error { return nil }
func (NopOutbox) PublishEscalation(context.Context, EscalationMessage) error     { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Topics names the two outbox topics.
type Topics struct {
	Notifications string
	Escalations   string
}

// Producer publishes JSON messages. One writer serves both topics; the topic
// is set per message.
type Producer struct {
	writer  messageWriter
	topics  Topics
	timeout time.Duration
}

// NewProducer connects a writer to the comma-separated broker list.
func NewProducer(brokersCSV string, topics Topics) (*Producer, error) {
	brokers := SplitCSV(brokersCSV)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if topics.Notifications == "" || topics.Escalations == "" {
		return nil, fmt.Errorf("both outbox topics are required")
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Balancer:     &kgo.LeastBytes{},
		RequiredAcks: kgo.RequireOne,
	}
	return newProducer(w, topics), nil
}

func newProducer(w messageWriter, topics Topics) *Producer {
	return &Producer{writer: w, topics: topics, timeout: 3 * time.Second}
}

func (p *Producer) Close() error { return p.writer.Close() }

// PublishNotification keys by recipient so one recipient's notifications stay ordered.
func (p *Producer) PublishNotification(ctx context.Context, msg NotificationMessage) error {
	return p.publishJSON(ctx, p.topics.Notifications, msg.Notification.Recipient, msg)
}

// PublishEscalation keys by event id.
func (p *Producer) PublishEscalation(ctx context.Context, msg EscalationMessage) error {
	return p.publishJSON(ctx, p.topics.Escalations, msg.Escalation.EventID, msg)
}

func (p *Producer) publishJSON(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	// small timeout so the pipeline doesn't hang if Kafka is down
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, kgo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}

// SplitCSV splits a comma-separated list, dropping blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
