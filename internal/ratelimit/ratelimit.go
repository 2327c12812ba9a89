// Package ratelimit implements a per-recipient sliding-window limiter capped by
// the recipient's plan tier.
//
// Checking and recording are separate: Check never consumes a slot, Record
// does. Reserve ties the two together for callers that decide to deliver only
// after further work, holding a pending slot that counts against the limit
// until it is committed or cancelled.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
)

const (
	// Window is the trailing window limits are counted over.
	Window = 60 * time.Second
	// RetryAfterSeconds is reported on every denial.
	RetryAfterSeconds = 60
)

// PlanSource resolves plan tier limits.
type PlanSource interface {
	Plan(name string) (routing.PlanTier, bool)
}

type bucket struct {
	hits    []time.Time
	pending int
}

// Limiter tracks delivery timestamps per recipient.
type Limiter struct {
	logger *zap.Logger
	plans  PlanSource
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a Limiter. now may be nil.
func New(logger *zap.Logger, plans PlanSource, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		logger:  logger.Named("ratelimit"),
		plans:   plans,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

// Check reports whether recipient may receive another notification under tier.
// It does not consume a slot.
func (l *Limiter) Check(recipient, tier string) (bool, models.RateLimitInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked(recipient, tier)
}

// Record consumes one slot for recipient.
func (l *Limiter) Record(recipient string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked(recipient)
}

// Reserve atomically checks the limit and, if allowed, holds a pending slot.
// The returned Reservation is nil when the request is denied.
func (l *Limiter) Reserve(recipient, tier string) (*Reservation, models.RateLimitInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, info := l.checkLocked(recipient, tier)
	if !ok {
		return nil, info
	}
	l.bucketLocked(recipient).pending++
	return &Reservation{l: l, recipient: recipient}, info
}

// Sweep prunes every bucket to the trailing window and drops empty ones.
// It returns the number of recipients removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-Window)
	removed := 0
	for r, b := range l.buckets {
		b.hits = prune(b.hits, cutoff)
		if len(b.hits) == 0 && b.pending == 0 {
			delete(l.buckets, r)
			removed++
		}
	}
	return removed
}

// Reset clears state for recipient, or for everyone when recipient is empty.
func (l *Limiter) Reset(recipient string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if recipient == "" {
		l.buckets = make(map[string]*bucket)
		return
	}
	delete(l.buckets, recipient)
}

// Len returns the number of tracked recipients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) checkLocked(recipient, tier string) (bool, models.RateLimitInfo) {
	limit, limited := l.limitFor(tier)
	if !limited {
		return true, models.RateLimitInfo{}
	}

	b := l.bucketLocked(recipient)
	b.hits = prune(b.hits, l.now().Add(-Window))
	current := len(b.hits) + b.pending

	if current >= limit {
		l.logger.Debug("Recipient rate limited",
			zap.String("recipient", recipient),
			zap.String("tier", tier),
			zap.Int("limit", limit),
		)
		return false, models.RateLimitInfo{
			Limit:             intPtr(limit),
			Remaining:         intPtr(0),
			RetryAfterSeconds: RetryAfterSeconds,
		}
	}
	return true, models.RateLimitInfo{
		Limit:     intPtr(limit),
		Remaining: intPtr(limit - current),
	}
}

func (l *Limiter) recordLocked(recipient string) {
	b := l.bucketLocked(recipient)
	now := l.now()
	b.hits = append(prune(b.hits, now.Add(-Window)), now)
}

func (l *Limiter) bucketLocked(recipient string) *bucket {
	b, ok := l.buckets[recipient]
	if !ok {
		b = &bucket{}
		l.buckets[recipient] = b
	}
	return b
}

// limitFor returns the tier's rate limit. Unknown tiers use the free tier.
func (l *Limiter) limitFor(tier string) (int, bool) {
	p, ok := l.plans.Plan(tier)
	if !ok {
		p, ok = l.plans.Plan(routing.PlanFree)
		if !ok {
			return 0, false
		}
	}
	if p.UnlimitedRate() {
		return 0, false
	}
	return p.RateLimit, true
}

// prune drops timestamps at or before cutoff. hits is in append order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func intPtr(v int) *int { return &v }

// Reservation is a pending slot taken by Reserve.
type Reservation struct {
	l         *Limiter
	recipient string
	once      sync.Once
}

// Commit turns the pending slot into a recorded delivery.
func (r *Reservation) Commit() {
	r.once.Do(func() {
		r.l.mu.Lock()
		defer r.l.mu.Unlock()
		r.release()
		r.l.recordLocked(r.recipient)
	})
}

// Cancel gives the pending slot back without recording.
func (r *Reservation) Cancel() {
	r.once.Do(func() {
		r.l.mu.Lock()
		defer r.l.mu.Unlock()
		r.release()
	})
}

func (r *Reservation) release() {
	if b, ok := r.l.buckets[r.recipient]; ok && b.pending > 0 {
		b.pending--
	}
}
