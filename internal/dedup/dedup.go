// Package dedup rejects re-delivery of the same logical event within a time
// window.
//
// An event's fingerprint is the md5 of a configured, ordered list of fields
// joined with "|". Fields are dot paths into the event ("data.task_id");
// missing fields and non-map path segments contribute an empty string.
// Generated ids (the pipeline's own notification and delivery ids) are never
// part of the fingerprint, so a retried submission of one logical event
// collapses onto one entry.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/models"
)

const (
	// DefaultWindow is used when Options.Window is zero.
	DefaultWindow = 300 * time.Second
	separator     = "|"
)

// DefaultHashFields fingerprints an event by type, recipient and task.
var DefaultHashFields = []string{"event_type", "assignee", "data.task_id"}

// Options configures an Engine.
type Options struct {
	Window     time.Duration
	HashFields []string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine tracks fingerprints seen within the window.
type Engine struct {
	logger *zap.Logger
	window time.Duration
	fields []string
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates an Engine.
func New(logger *zap.Logger, opts Options) *Engine {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if len(opts.HashFields) == 0 {
		opts.HashFields = DefaultHashFields
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		logger: logger.Named("dedup"),
		window: opts.Window,
		fields: append([]string(nil), opts.HashFields...),
		now:    opts.Now,
		seen:   make(map[string]time.Time),
	}
}

// IsDuplicate reports whether ev was already seen within the window.
// A first sighting registers the fingerprint. A duplicate does not refresh
// the stored timestamp, so the first sighting governs expiry.
func (e *Engine) IsDuplicate(ev models.Event) bool {
	fp := e.Fingerprint(ev)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.pruneLocked(now)

	if _, ok := e.seen[fp]; ok {
		e.logger.Debug("Duplicate event suppressed",
			zap.String("event_id", ev.EventID),
			zap.String("fingerprint", fp),
		)
		return true
	}
	e.seen[fp] = now
	return false
}

// Fingerprint computes the dedup hash for ev.
func (e *Engine) Fingerprint(ev models.Event) string {
	parts := make([]string, len(e.fields))
	for i, f := range e.fields {
		parts[i] = extract(ev, f)
	}
	sum := md5.Sum([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}

// Forget drops ev's fingerprint so a later submission of the same event is
// processed again. The pipeline calls it when delivery fails.
func (e *Engine) Forget(ev models.Event) {
	fp := e.Fingerprint(ev)

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.seen, fp)
}

// Sweep evicts every expired fingerprint and returns how many were removed.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pruneLocked(e.now())
}

// Len returns the number of live fingerprints.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

// Reset clears all state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = make(map[string]time.Time)
}

func (e *Engine) pruneLocked(now time.Time) int {
	cutoff := now.Add(-e.window)
	removed := 0
	for fp, ts := range e.seen {
		if ts.Before(cutoff) {
			delete(e.seen, fp)
			removed++
		}
	}
	return removed
}

// extract resolves a dot path against the event.
func extract(ev models.Event, path string) string {
	segs := strings.Split(path, ".")
	var cur any = ev.Field(segs[0])
	for _, seg := range segs[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[seg]
	}
	if cur == nil {
		return ""
	}
	if s, ok := cur.(string); ok {
		return s
	}
	if t, ok := cur.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(cur)
}
