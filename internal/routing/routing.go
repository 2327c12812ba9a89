// Package routing holds the static configuration the notification pipeline
// routes against: per-event-type routing entries, the channel registry, plan
// tiers and the on-call schedule.
//
// A Table is loaded once at start-up (from YAML, see Load) and treated as
// read-only afterwards, so it is safe to share between goroutines.
package routing

import (
	"sort"
	"time"
)

// Priority strings used by routing entries.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// ActionPageOnCall marks a routing entry whose events must page on-call.
const ActionPageOnCall = "page_oncall"

// PlanEnterprise is the tier unknown recipients resolve to.
const PlanEnterprise = "enterprise"

// PlanFree is the tier the rate limiter falls back to for unknown tier names.
const PlanFree = "free"

// UnknownChannelWeight sorts channels missing from the registry last.
const UnknownChannelWeight = 99

// RoutingEntry is the static routing rule for one event type.
type RoutingEntry struct {
	Priority        string   `yaml:"priority" json:"priority"`
	Channels        []string `yaml:"channels" json:"channels"`
	Actions         []string `yaml:"actions" json:"actions"`
	CooldownMinutes int      `yaml:"cooldown_minutes" json:"cooldown_minutes"`
}

// HasAction reports whether the entry lists action.
func (r RoutingEntry) HasAction(action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Cooldown returns the entry cooldown as a duration.
func (r RoutingEntry) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// DefaultRoute is returned for event types missing from the table.
func DefaultRoute() RoutingEntry {
	return RoutingEntry{
		Priority: PriorityNormal,
		Channels: []string{"email"},
	}
}

// Channel is one channel registry entry.
type Channel struct {
	Provider       string `yaml:"provider" json:"provider"`
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	PriorityWeight int    `yaml:"priority_weight" json:"priority_weight"`
}

// PlanTier caps channel count and request rate. Zero means unlimited.
type PlanTier struct {
	MaxChannels int `yaml:"max_channels" json:"max_channels"`
	RateLimit   int `yaml:"rate_limit" json:"rate_limit"`
}

// UnlimitedChannels reports whether the tier has no channel cap.
func (p PlanTier) UnlimitedChannels() bool { return p.MaxChannels <= 0 }

// UnlimitedRate reports whether the tier has no request-rate cap.
func (p PlanTier) UnlimitedRate() bool { return p.RateLimit <= 0 }

// OnCall is the escalation schedule.
type OnCall struct {
	Default string            `yaml:"default" json:"default"`
	Teams   map[string]string `yaml:"teams" json:"teams"`
}

// DedupSettings configures fingerprinting.
type DedupSettings struct {
	WindowSeconds int      `yaml:"window_seconds" json:"window_seconds"`
	HashFields    []string `yaml:"hash_fields" json:"hash_fields"`
}

// Window returns the dedup window, defaulting to five minutes.
func (d DedupSettings) Window() time.Duration {
	if d.WindowSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(d.WindowSeconds) * time.Second
}

// RecipientProfile seeds the preference store.
type RecipientProfile struct {
	Plan        string         `yaml:"plan" json:"plan"`
	Preferences map[string]any `yaml:"preferences" json:"preferences,omitempty"`
}

// Table is the full routing configuration.
type Table struct {
	Routes     map[string]RoutingEntry     `yaml:"routes"`
	Channels   map[string]Channel          `yaml:"channels"`
	Plans      map[string]PlanTier         `yaml:"plans"`
	OnCall     OnCall                      `yaml:"oncall"`
	Dedup      DedupSettings               `yaml:"dedup"`
	Recipients map[string]RecipientProfile `yaml:"recipients"`
}

// Route returns the entry for eventType, or DefaultRoute for unknown types.
func (t *Table) Route(eventType string) RoutingEntry {
	if r, ok := t.Routes[eventType]; ok {
		return r
	}
	return DefaultRoute()
}

// Known reports whether eventType has an explicit routing entry.
func (t *Table) Known(eventType string) bool {
	_, ok := t.Routes[eventType]
	return ok
}

// Channel looks up a channel registry entry.
func (t *Table) Channel(name string) (Channel, bool) {
	c, ok := t.Channels[name]
	return c, ok
}

// ChannelWeight returns the registry priority weight, UnknownChannelWeight if absent.
func (t *Table) ChannelWeight(name string) int {
	c, ok := t.Channels[name]
	if !ok {
		return UnknownChannelWeight
	}
	return c.PriorityWeight
}

// Plan looks up a plan tier.
func (t *Table) Plan(name string) (PlanTier, bool) {
	p, ok := t.Plans[name]
	return p, ok
}

// SupportedEvents returns the configured event types in sorted order.
func (t *Table) SupportedEvents() []string {
	out := make([]string, 0, len(t.Routes))
	for k := range t.Routes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MaxCooldown is the longest cooldown of any routing entry.
func (t *Table) MaxCooldown() time.Duration {
	var longest time.Duration
	for _, r := range t.Routes {
		if d := r.Cooldown(); d > longest {
			longest = d
		}
	}
	return longest
}
