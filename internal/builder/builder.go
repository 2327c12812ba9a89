// Package builder assembles notification payloads.
package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
)

// MaxSubjectLength bounds the rendered subject, ellipsis included.
const MaxSubjectLength = 120

const unknown = "unknown"

// ChannelResolver is the subset of channels.Resolver the builder needs.
type ChannelResolver interface {
	ResolveChannels(eventType, tier string) []string
	ResolvePriority(eventType string) string
}

// WeightSource ranks channels for ordering.
type WeightSource interface {
	ChannelWeight(name string) int
}

// Builder creates notifications. Safe for concurrent use.
type Builder struct {
	logger   *zap.Logger
	resolver ChannelResolver
	weights  WeightSource
	now      func() time.Time
	nonce    string
	seq      atomic.Uint64
}

// New creates a Builder. now may be nil.
func New(logger *zap.Logger, resolver ChannelResolver, weights WeightSource, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{
		logger:   logger.Named("builder"),
		resolver: resolver,
		weights:  weights,
		now:      now,
		nonce:    uuid.NewString(),
	}
}

// Build assembles a notification for recipient. extra channels are merged
// after the routed ones, skipping any already present, and the result is
// ordered by channel weight. Build returns nil when no channel resolves.
func (b *Builder) Build(eventType, recipient string, data map[string]any, extra []string) *models.Notification {
	return b.build("", eventType, recipient, data, extra)
}

// BuildEvent is Build for an ingested event, carrying its id onto the notification.
func (b *Builder) BuildEvent(ev models.Event, extra []string) *models.Notification {
	return b.build(ev.EventID, ev.EventType, ev.Assignee, ev.Data, extra)
}

func (b *Builder) build(eventID, eventType, recipient string, data map[string]any, extra []string) *models.Notification {
	channels := b.resolver.ResolveChannels(eventType, routing.PlanEnterprise)
	if len(channels) == 0 {
		b.logger.Warn("No route for event type", zap.String("event_type", eventType))
		return nil
	}
	if data == nil {
		data = map[string]any{}
	}
	priority := b.resolver.ResolvePriority(eventType)

	channels = mergeChannels(channels, extra)
	b.sortByWeight(channels)

	return &models.Notification{
		NotificationID: b.nextID(eventType, recipient),
		EventID:        eventID,
		EventType:      eventType,
		Priority:       priority,
		Recipient:      recipient,
		Channels:       channels,
		Metadata:       buildMetadata(eventType, recipient, data, priority),
		EventData:      data,
		CreatedAt:      b.now(),
	}
}

// nextID hashes type, recipient, a per-builder nonce and a sequence number,
// so ids stay unique across builders and process restarts sharing a store.
func (b *Builder) nextID(eventType, recipient string) string {
	n := b.seq.Add(1)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", eventType, recipient, b.nonce, n)))
	return "ntf-" + hex.EncodeToString(sum[:])[:12]
}

func (b *Builder) sortByWeight(channels []string) {
	sort.SliceStable(channels, func(i, j int) bool {
		return b.weights.ChannelWeight(channels[i]) < b.weights.ChannelWeight(channels[j])
	})
}

// mergeChannels returns a new slice holding base followed by the extras not
// already present. Neither input is modified.
func mergeChannels(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, ch := range append(append([]string(nil), base...), extra...) {
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}
