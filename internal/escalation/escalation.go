// Package escalation decides when an event must page on-call, resolves the
// on-call targets and keeps the escalation log used for cooldowns.
package escalation

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
)

// Severities that escalate regardless of routing actions.
var escalatingSeverities = map[string]bool{
	"critical": true,
	"p0":       true,
}

// Engine is safe for concurrent use. Log entries are appended under a single
// lock with their timestamps taken inside it, so the log is always ordered by
// EscalatedAt.
type Engine struct {
	logger *zap.Logger
	table  *routing.Table
	now    func() time.Time

	mu  sync.Mutex
	log []models.EscalationLogEntry
}

// New creates an Engine. now may be nil.
func New(logger *zap.Logger, table *routing.Table, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logger: logger.Named("escalation"),
		table:  table,
		now:    now,
	}
}

// ShouldEscalate is true when the route pages on-call or the event carries a
// critical/p0 severity.
func (e *Engine) ShouldEscalate(eventType string, data map[string]any) bool {
	if e.table.Route(eventType).HasAction(routing.ActionPageOnCall) {
		return true
	}
	return escalatingSeverities[models.String(data, "severity")]
}

// Targets returns who to page: nothing unless the event escalates, otherwise
// the default on-call address plus the team address when data.team names a
// configured team.
func (e *Engine) Targets(eventType string, data map[string]any) []string {
	if !e.ShouldEscalate(eventType, data) {
		return nil
	}
	targets := []string{e.table.OnCall.Default}
	if team := models.String(data, "team"); team != "" {
		if addr, ok := e.table.OnCall.Teams[team]; ok && addr != e.table.OnCall.Default {
			targets = append(targets, addr)
		}
	}
	return targets
}

// Record appends an escalation to the log and returns the entry.
func (e *Engine) Record(eventID, eventType string, targets []string) models.EscalationLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordLocked(eventID, eventType, targets)
}

// RecordActive filters targets through the cooldown and records the ones
// left, under one lock so concurrent events cannot both page a target. ok is
// false, and nothing is recorded, when every target is cooling down.
func (e *Engine) RecordActive(eventID, eventType string, targets []string) (entry models.EscalationLogEntry, suppressed []string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active, suppressed := e.filterLocked(eventType, targets)
	if len(active) == 0 {
		return models.EscalationLogEntry{}, suppressed, false
	}
	return e.recordLocked(eventID, eventType, active), suppressed, true
}

func (e *Engine) recordLocked(eventID, eventType string, targets []string) models.EscalationLogEntry {
	at := e.now()
	if n := len(e.log); n > 0 && at.Before(e.log[n-1].EscalatedAt) {
		at = e.log[n-1].EscalatedAt
	}
	entry := models.EscalationLogEntry{
		EventID:     eventID,
		EventType:   eventType,
		Targets:     append([]string(nil), targets...),
		EscalatedAt: at,
	}
	e.log = append(e.log, entry)

	e.logger.Info("Escalation recorded",
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.Strings("targets", targets),
	)
	return entry
}

// InCooldown reports whether recipient was escalated to for eventType within
// that type's cooldown. A zero or negative cooldown never cools down.
//
// The log is scanned newest first and the scan stops at the first entry older
// than the cutoff; this relies on the append order Record guarantees.
func (e *Engine) InCooldown(eventType, recipient string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inCooldownLocked(eventType, recipient)
}

func (e *Engine) inCooldownLocked(eventType, recipient string) bool {
	cooldown := e.table.Route(eventType).Cooldown()
	if cooldown <= 0 {
		return false
	}

	cutoff := e.now().Add(-cooldown)
	for i := len(e.log) - 1; i >= 0; i-- {
		entry := e.log[i]
		if entry.EscalatedAt.Before(cutoff) {
			return false
		}
		if entry.EventType != eventType {
			continue
		}
		for _, t := range entry.Targets {
			if t == recipient {
				return true
			}
		}
	}
	return false
}

// FilterCooldown splits targets into those that may be paged now and those
// still cooling down for eventType.
func (e *Engine) FilterCooldown(eventType string, targets []string) (active, suppressed []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filterLocked(eventType, targets)
}

func (e *Engine) filterLocked(eventType string, targets []string) (active, suppressed []string) {
	for _, t := range targets {
		if e.inCooldownLocked(eventType, t) {
			suppressed = append(suppressed, t)
			continue
		}
		active = append(active, t)
	}
	return active, suppressed
}

// Trim drops log entries older than maxAge and returns how many were removed.
func (e *Engine) Trim(maxAge time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-maxAge)
	i := 0
	for i < len(e.log) && e.log[i].EscalatedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		e.log = append(e.log[:0:0], e.log[i:]...)
	}
	return i
}

// Entries returns a copy of the log, oldest first.
func (e *Engine) Entries() []models.EscalationLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.EscalationLogEntry(nil), e.log...)
}
