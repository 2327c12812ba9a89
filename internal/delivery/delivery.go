// Package delivery records accepted notifications as delivered and issues
// receipts.
package delivery

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/metrics"
	"notify-pipeline/internal/models"
	"notify-pipeline/internal/queue"
)

// DefaultSeed is the counter value before the first delivery id.
const DefaultSeed = 200

// NotificationSaver persists delivered notifications.
type NotificationSaver interface {
	SaveNotification(ctx context.Context, n models.Notification) error
}

// Options configures a Sink.
type Options struct {
	// Seed is the counter start; ids begin at Seed+1.
	Seed uint64
	Now  func() time.Time
}

// Sink persists notifications and hands them to the outbox.
type Sink struct {
	logger  *zap.Logger
	store   NotificationSaver
	outbox  queue.Outbox
	now     func() time.Time
	counter atomic.Uint64
}

// New creates a Sink. A nil outbox disables fan-out publishing.
func New(logger *zap.Logger, store NotificationSaver, outbox queue.Outbox, opts Options) *Sink {
	if outbox == nil {
		outbox = queue.NopOutbox{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	s := &Sink{
		logger: logger.Named("delivery"),
		store:  store,
		outbox: outbox,
		now:    opts.Now,
	}
	s.counter.Store(opts.Seed)
	return s
}

// Deliver persists n and returns its receipt. A nil notification yields an
// undelivered receipt with reason "empty payload" and no id. Store failures
// are returned as errors; outbox failures are logged and counted only.
func (s *Sink) Deliver(ctx context.Context, n *models.Notification) (models.DeliveryReceipt, error) {
	if n == nil {
		return models.DeliveryReceipt{Delivered: false, Reason: models.ReasonEmptyPayload}, nil
	}

	deliveryID := fmt.Sprintf("dlv-%04d", s.counter.Add(1))

	if err := s.store.SaveNotification(ctx, *n); err != nil {
		return models.DeliveryReceipt{}, fmt.Errorf("save notification %s: %w", n.NotificationID, err)
	}

	if err := s.outbox.PublishNotification(ctx, queue.NotificationMessage{
		DeliveryID:   deliveryID,
		Notification: *n,
	}); err != nil {
		metrics.OutboxErrors.WithLabelValues("notification").Inc()
		s.logger.Error("Outbox publish failed",
			zap.String("delivery_id", deliveryID),
			zap.String("notification_id", n.NotificationID),
			zap.Error(err),
		)
	}

	s.logger.Debug("Notification delivered",
		zap.String("delivery_id", deliveryID),
		zap.String("recipient", n.Recipient),
		zap.Strings("channels", n.Channels),
	)

	return models.DeliveryReceipt{
		Delivered:      true,
		DeliveryID:     deliveryID,
		NotificationID: n.NotificationID,
		EventType:      n.EventType,
		Priority:       n.Priority,
		Channels:       append([]string(nil), n.Channels...),
		Recipient:      n.Recipient,
		DeliveredAt:    s.now(),
	}, nil
}
