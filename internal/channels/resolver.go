// Package channels turns an event type and plan tier into an ordered channel
// list.
package channels

import (
	"go.uber.org/zap"

	"notify-pipeline/internal/routing"
)

// Resolver resolves channels and priorities against a routing table.
type Resolver struct {
	logger *zap.Logger
	table  *routing.Table
}

// NewResolver creates a Resolver.
func NewResolver(logger *zap.Logger, table *routing.Table) *Resolver {
	return &Resolver{logger: logger.Named("resolver"), table: table}
}

// ResolveChannels returns the effective channel list for eventType under tier.
//
// Channels missing from the registry or disabled there are dropped, unless
// that would drop every channel, in which case the unfiltered list is kept.
// The result is then truncated to the tier's channel cap; unlimited and
// unrecognised tiers are not truncated. The returned slice is always a fresh
// copy.
func (r *Resolver) ResolveChannels(eventType, tier string) []string {
	base := r.table.Route(eventType).Channels
	filtered := r.filterDisabled(eventType, base)
	return r.applyPlanLimit(filtered, tier)
}

// ResolvePriority returns the routing priority for eventType.
func (r *Resolver) ResolvePriority(eventType string) string {
	return r.table.Route(eventType).Priority
}

func (r *Resolver) active(name string) bool {
	c, ok := r.table.Channel(name)
	return ok && c.Enabled
}

func (r *Resolver) filterDisabled(eventType string, in []string) []string {
	out := make([]string, 0, len(in))
	for _, ch := range in {
		if r.active(ch) {
			out = append(out, ch)
		}
	}
	if len(out) == 0 && len(in) > 0 {
		r.logger.Warn("All channels disabled for event type, keeping unfiltered list",
			zap.String("event_type", eventType),
			zap.Strings("channels", in),
		)
		return append([]string(nil), in...)
	}
	return out
}

func (r *Resolver) applyPlanLimit(in []string, tier string) []string {
	p, ok := r.table.Plan(tier)
	if !ok || p.UnlimitedChannels() || len(in) <= p.MaxChannels {
		return in
	}
	return in[:p.MaxChannels:p.MaxChannels]
}
