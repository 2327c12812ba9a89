// Package pipeline sequences dedup, rate limiting, notification building,
// escalation and delivery into one decision per event.
//
// Expected rejections (duplicate, rate limited, unrecognised event type) are
// reported as Outcomes; an error is returned only when persistence fails.
package pipeline

import (
	"context"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/builder"
	"notify-pipeline/internal/channels"
	"notify-pipeline/internal/dedup"
	"notify-pipeline/internal/delivery"
	"notify-pipeline/internal/escalation"
	"notify-pipeline/internal/metrics"
	"notify-pipeline/internal/models"
	"notify-pipeline/internal/queue"
	"notify-pipeline/internal/ratelimit"
	"notify-pipeline/internal/routing"
	"notify-pipeline/internal/store"
)

// PlanStore resolves a recipient's plan tier and stored preferences.
type PlanStore interface {
	Plan(userID string) string
	Profile(userID string) (routing.RecipientProfile, bool)
}

// Options tune a pipeline built with New.
type Options struct {
	// DedupWindow and DedupFields override the routing table's dedup settings.
	DedupWindow time.Duration
	DedupFields []string
	// DeliverySeed is the delivery counter start.
	DeliverySeed uint64
	// Now overrides the clock for every stage, for tests.
	Now func() time.Time
}

// Pipeline owns all per-process state. Multiple pipelines may coexist.
type Pipeline struct {
	logger     *zap.Logger
	table      *routing.Table
	dedup      *dedup.Engine
	limiter    *ratelimit.Limiter
	resolver   *channels.Resolver
	builder    *builder.Builder
	escalation *escalation.Engine
	sink       *delivery.Sink
	plans      PlanStore
	store      store.Store
	outbox     queue.Outbox
}

// New wires a pipeline against table, persisting to st and publishing side
// effects to outbox (nil disables publishing).
func New(logger *zap.Logger, table *routing.Table, plans PlanStore, st store.Store, outbox queue.Outbox, opts Options) *Pipeline {
	if outbox == nil {
		outbox = queue.NopOutbox{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	window := opts.DedupWindow
	if window <= 0 {
		window = table.Dedup.Window()
	}
	fields := opts.DedupFields
	if len(fields) == 0 {
		fields = table.Dedup.HashFields
	}

	resolver := channels.NewResolver(logger, table)
	return &Pipeline{
		logger:     logger.Named("pipeline"),
		table:      table,
		dedup:      dedup.New(logger, dedup.Options{Window: window, HashFields: fields, Now: opts.Now}),
		limiter:    ratelimit.New(logger, table, opts.Now),
		resolver:   resolver,
		builder:    builder.New(logger, resolver, table, opts.Now),
		escalation: escalation.New(logger, table, opts.Now),
		sink:       delivery.New(logger, st, outbox, delivery.Options{Seed: opts.DeliverySeed, Now: opts.Now}),
		plans:      plans,
		store:      st,
		outbox:     outbox,
	}
}

// Process decides and, when accepted, delivers one event.
func (p *Pipeline) Process(ctx context.Context, ev models.Event) (models.Outcome, error) {
	if p.dedup.IsDuplicate(ev) {
		return p.reject(ev, models.ReasonDuplicate), nil
	}

	tier := p.plans.Plan(ev.Assignee)
	reservation, info := p.limiter.Reserve(ev.Assignee, tier)
	if reservation == nil {
		out := p.reject(ev, models.ReasonRateLimited)
		out.RateLimit = &info
		return out, nil
	}

	prefs := p.preferencesFor(ev)

	n := p.builder.BuildEvent(ev, ExtraChannels(prefs))
	if n == nil {
		reservation.Cancel()
		return p.reject(ev, models.ReasonUnrecognised), nil
	}
	n.RecipientEmail = recipientEmail(ev.Assignee, prefs)

	// The rate slot, dedup entry and escalation only stick once the
	// notification is persisted.
	receipt, err := p.sink.Deliver(ctx, n)
	if err != nil {
		reservation.Cancel()
		p.dedup.Forget(ev)
		return models.Outcome{}, err
	}
	reservation.Commit()

	esc := p.escalate(ctx, ev, n)

	metrics.Outcomes.WithLabelValues(metrics.OutcomeDelivered).Inc()
	p.logger.Info("Event delivered",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.String("recipient", ev.Assignee),
		zap.String("tier", tier),
		zap.String("delivery_id", receipt.DeliveryID),
		zap.Strings("channels", receipt.Channels),
	)
	return models.Outcome{
		Delivered:  receipt.Delivered,
		Reason:     receipt.Reason,
		Receipt:    &receipt,
		Escalation: esc,
	}, nil
}

// escalate pages on-call when the event calls for it. Targets still cooling
// down for the event type are suppressed; the rest are recorded. Failures
// here are logged and never block delivery.
func (p *Pipeline) escalate(ctx context.Context, ev models.Event, n *models.Notification) *models.EscalationResult {
	if !p.escalation.ShouldEscalate(ev.EventType, ev.Data) {
		return nil
	}

	targets := p.escalation.Targets(ev.EventType, ev.Data)
	entry, suppressed, recorded := p.escalation.RecordActive(ev.EventID, ev.EventType, targets)
	res := &models.EscalationResult{Targets: entry.Targets, Suppressed: suppressed, Recorded: recorded}
	if len(suppressed) > 0 {
		metrics.Escalations.WithLabelValues("suppressed").Add(float64(len(suppressed)))
	}
	if !recorded {
		p.logger.Info("Escalation suppressed by cooldown",
			zap.String("event_id", ev.EventID),
			zap.Strings("targets", suppressed),
		)
		return res
	}
	metrics.Escalations.WithLabelValues("recorded").Inc()

	if err := p.store.SaveEscalation(ctx, entry); err != nil {
		p.logger.Error("Failed to persist escalation", zap.String("event_id", ev.EventID), zap.Error(err))
	}
	if err := p.outbox.PublishEscalation(ctx, queue.EscalationMessage{
		Escalation: entry,
		Priority:   n.Priority,
		Subject:    n.Metadata.Subject,
		Body:       n.Metadata.Body,
	}); err != nil {
		metrics.OutboxErrors.WithLabelValues("escalation").Inc()
		p.logger.Error("Outbox publish failed", zap.String("event_id", ev.EventID), zap.Error(err))
	}
	return res
}

func (p *Pipeline) reject(ev models.Event, reason string) models.Outcome {
	metrics.Outcomes.WithLabelValues(reason).Inc()
	p.logger.Info("Event not delivered",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.String("recipient", ev.Assignee),
		zap.String("reason", reason),
	)
	return models.Rejected(reason)
}

// preferencesFor overlays the event's stated preferences on the stored ones.
func (p *Pipeline) preferencesFor(ev models.Event) map[string]any {
	prefs := map[string]any{}
	if profile, ok := p.plans.Profile(ev.Assignee); ok {
		maps.Copy(prefs, profile.Preferences)
	}
	maps.Copy(prefs, ev.AssigneePreferences)
	return prefs
}

// recipientEmail picks the address email senders use: the "email"
// preference, else the recipient id when it is already an address.
func recipientEmail(recipient string, prefs map[string]any) string {
	if addr := models.String(prefs, "email"); addr != "" {
		return addr
	}
	if strings.Contains(recipient, "@") {
		return recipient
	}
	return ""
}

// ExtraChannels derives channels requested by preferences. It returns nil,
// not an empty slice, when nothing is requested.
func ExtraChannels(prefs map[string]any) []string {
	var out []string
	if models.Bool(prefs, "slack_enabled") {
		out = append(out, "slack")
	}
	if models.Bool(prefs, "push_enabled") {
		out = append(out, "push")
	}
	return out
}

// Table returns the routing table the pipeline routes against.
func (p *Pipeline) Table() *routing.Table { return p.table }

// Resolver exposes channel resolution for read-only callers such as the CLI.
func (p *Pipeline) Resolver() *channels.Resolver { return p.resolver }
