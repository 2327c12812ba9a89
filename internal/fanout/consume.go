package fanout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/queue"
)

// readErrorBackoff is the pause after a failed read before trying again.
var readErrorBackoff = 500 * time.Millisecond

// NotificationReader yields outbox notification messages.
type NotificationReader interface {
	ReadNotification(ctx context.Context) (queue.NotificationMessage, queue.CommitFunc, error)
}

// EscalationReader yields outbox escalation messages.
type EscalationReader interface {
	ReadEscalation(ctx context.Context) (queue.EscalationMessage, queue.CommitFunc, error)
}

// ConsumeNotifications dispatches messages from r until ctx is done. Each
// message is committed once dispatched, whether or not every channel
// succeeded.
func (d *Dispatcher) ConsumeNotifications(ctx context.Context, r NotificationReader) error {
	return consume(ctx, d.logger, "notification", func(ctx context.Context) (queue.CommitFunc, error) {
		msg, commit, err := r.ReadNotification(ctx)
		if err != nil {
			return nil, err
		}
		d.Dispatch(ctx, msg)
		return commit, nil
	})
}

// ConsumeEscalations pages the targets of messages from r until ctx is done.
func (d *Dispatcher) ConsumeEscalations(ctx context.Context, r EscalationReader) error {
	return consume(ctx, d.logger, "escalation", func(ctx context.Context) (queue.CommitFunc, error) {
		msg, commit, err := r.ReadEscalation(ctx)
		if err != nil {
			return nil, err
		}
		d.Page(ctx, msg)
		return commit, nil
	})
}

func consume(ctx context.Context, logger *zap.Logger, kind string, handle func(context.Context) (queue.CommitFunc, error)) error {
	for {
		commit, err := handle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("Read failed", zap.String("kind", kind), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(readErrorBackoff):
			}
			continue
		}
		if err := commit(ctx); err != nil {
			logger.Warn("Commit failed", zap.String("kind", kind), zap.Error(err))
		}
	}
}
