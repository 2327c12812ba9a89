// Package fanout sends delivered notifications through their channels and
// pages on-call targets for recorded escalations.
//
// Each channel has its own token-bucket throttle. Failed sends are logged and
// counted; nothing is retried.
package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"notify-pipeline/internal/email"
	"notify-pipeline/internal/metrics"
	"notify-pipeline/internal/models"
	"notify-pipeline/internal/queue"
)

// Sender delivers a notification over one channel.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// DefaultRate is the per-channel send rate used when Register gets none.
const DefaultRate = 10

type channel struct {
	sender  Sender
	limiter *rate.Limiter
}

// Dispatcher routes notifications to registered channel senders.
type Dispatcher struct {
	logger   *zap.Logger
	fallback Sender
	pager    email.Sender

	mu       sync.RWMutex
	channels map[string]channel
}

// New creates a Dispatcher. Channels without a registered sender go to
// fallback; escalations are emailed through pager. Either may be nil.
func New(logger *zap.Logger, fallback Sender, pager email.Sender) *Dispatcher {
	return &Dispatcher{
		logger:   logger.Named("fanout"),
		fallback: fallback,
		pager:    pager,
		channels: make(map[string]channel),
	}
}

// Register sets the sender for name, throttled to perSecond sends with the
// given burst. Non-positive values use DefaultRate.
func (d *Dispatcher) Register(name string, s Sender, perSecond float64, burst int) {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[name] = channel{sender: s, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (d *Dispatcher) lookup(name string) (Sender, *rate.Limiter) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.channels[name]; ok {
		return c.sender, c.limiter
	}
	return d.fallback, nil
}

// Dispatch sends msg over each of its channels and returns the failures by
// channel. A nil map means every send succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, msg queue.NotificationMessage) map[string]error {
	var failed map[string]error
	for _, name := range msg.Notification.Channels {
		if err := d.send(ctx, name, msg.Notification); err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[name] = err
			d.logger.Warn("Channel send failed",
				zap.String("delivery_id", msg.DeliveryID),
				zap.String("channel", name),
				zap.Error(err),
			)
		}
	}
	return failed
}

func (d *Dispatcher) send(ctx context.Context, name string, n models.Notification) error {
	sender, limiter := d.lookup(name)
	if sender == nil {
		metrics.ChannelSends.WithLabelValues(name, "skipped").Inc()
		return fmt.Errorf("no sender for channel %q", name)
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			metrics.ChannelSends.WithLabelValues(name, "throttled").Inc()
			return err
		}
	}

	start := time.Now()
	err := sender.Send(ctx, n)
	metrics.ChannelSendDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChannelSends.WithLabelValues(name, "error").Inc()
		return err
	}
	metrics.ChannelSends.WithLabelValues(name, "ok").Inc()
	return nil
}

// Page emails every escalation target and returns the failures by target.
func (d *Dispatcher) Page(ctx context.Context, msg queue.EscalationMessage) map[string]error {
	if d.pager == nil {
		d.logger.Warn("No pager configured, escalation dropped", zap.String("event_id", msg.Escalation.EventID))
		return nil
	}

	subject := fmt.Sprintf("[ESCALATION %s] %s", msg.Priority, msg.Subject)
	var failed map[string]error
	for _, target := range msg.Escalation.Targets {
		err := d.pager.Send(ctx, target, subject, msg.Body)
		if err == nil {
			metrics.ChannelSends.WithLabelValues("page", "ok").Inc()
			continue
		}
		metrics.ChannelSends.WithLabelValues("page", "error").Inc()
		if failed == nil {
			failed = make(map[string]error)
		}
		failed[target] = err
		d.logger.Warn("Page failed",
			zap.String("event_id", msg.Escalation.EventID),
			zap.String("target", target),
			zap.Error(err),
		)
	}
	return failed
}
