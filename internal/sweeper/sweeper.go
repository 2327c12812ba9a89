// Package sweeper periodically evicts expired in-memory pipeline state on a
// cron schedule.
package sweeper

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"notify-pipeline/internal/metrics"
)

// DefaultSchedule runs a sweep every minute.
const DefaultSchedule = "@every 1m"

// Target is one piece of state that can be swept.
type Target struct {
	Kind  string
	Sweep func() int
}

// Sweeper runs every target's Sweep on a schedule.
type Sweeper struct {
	logger  *zap.Logger
	cron    *cron.Cron
	targets []Target
}

// New creates a Sweeper. An empty schedule uses DefaultSchedule.
func New(logger *zap.Logger, schedule string, targets ...Target) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Sweeper{
		logger:  logger.Named("sweeper"),
		cron:    cron.New(),
		targets: targets,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce() }); err != nil {
		return nil, fmt.Errorf("sweeper: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }

// RunOnce sweeps every target and returns the evictions per kind.
func (s *Sweeper) RunOnce() map[string]int {
	out := make(map[string]int, len(s.targets))
	for _, t := range s.targets {
		n := t.Sweep()
		out[t.Kind] += n
		if n > 0 {
			metrics.SweepEvictions.WithLabelValues(t.Kind).Add(float64(n))
			s.logger.Debug("Swept state", zap.String("kind", t.Kind), zap.Int("evicted", n))
		}
	}
	return out
}
