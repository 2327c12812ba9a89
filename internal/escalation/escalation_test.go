package escalation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notify-pipeline/internal/routing"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newEngine(t *testing.T) (*Engine, *clock) {
	t.Helper()
	tbl := routing.Default()
	tbl.OnCall.Teams["platform"] = "platform-oncall@example.com"
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(zap.NewNop(), tbl, clk.Now), clk
}

func TestShouldEscalate(t *testing.T) {
	e, _ := newEngine(t)

	tests := []struct {
		name      string
		eventType string
		data      map[string]any
		want      bool
	}{
		{"page action", "task.urgent", nil, true},
		{"critical severity", "task.assigned", map[string]any{"severity": "critical"}, true},
		{"p0 severity", "comment.added", map[string]any{"severity": "p0"}, true},
		{"minor severity", "task.assigned", map[string]any{"severity": "minor"}, false},
		{"non-string severity", "task.assigned", map[string]any{"severity": 0}, false},
		{"nothing", "task.completed", map[string]any{}, false},
		{"unknown type", "no.such", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ShouldEscalate(tt.eventType, tt.data))
		})
	}
}

func TestTargets(t *testing.T) {
	e, _ := newEngine(t)

	assert.Equal(t, []string{"ops-team@example.com"}, e.Targets("task.urgent", nil))
	assert.Equal(t, []string{"ops-team@example.com"},
		e.Targets("task.assigned", map[string]any{"severity": "critical"}))
	assert.Equal(t, []string{"ops-team@example.com", "platform-oncall@example.com"},
		e.Targets("task.urgent", map[string]any{"team": "platform"}))
	assert.Equal(t, []string{"ops-team@example.com", "weekend-oncall@example.com"},
		e.Targets("task.urgent", map[string]any{"team": "weekends"}))
	assert.Equal(t, []string{"ops-team@example.com"},
		e.Targets("task.urgent", map[string]any{"team": "marketing"}))
	assert.Empty(t, e.Targets("task.assigned", map[string]any{"team": "platform"}))
}

func TestRecord(t *testing.T) {
	e, clk := newEngine(t)
	targets := []string{"ops-team@example.com"}
	entry := e.Record("evt-1", "task.urgent", targets)
	targets[0] = "mutated"

	assert.Equal(t, "evt-1", entry.EventID)
	assert.Equal(t, clk.now, entry.EscalatedAt)

	entries := e.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"ops-team@example.com"}, entries[0].Targets)
}

func TestRecord_OrderedWhenClockStepsBack(t *testing.T) {
	e, clk := newEngine(t)
	e.Record("a", "task.urgent", []string{"x"})
	clk.Advance(-time.Minute)
	e.Record("b", "task.urgent", []string{"y"})

	entries := e.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[1].EscalatedAt.Before(entries[0].EscalatedAt))
}

func TestInCooldown(t *testing.T) {
	e, clk := newEngine(t)
	const target = "ops-team@example.com"

	// comment.added cools down for 15 minutes.
	assert.False(t, e.InCooldown("comment.added", target))
	e.Record("evt-1", "comment.added", []string{target})

	clk.Advance(10 * time.Minute)
	assert.True(t, e.InCooldown("comment.added", target))
	assert.False(t, e.InCooldown("comment.added", "someone-else@example.com"))

	// task.urgent has no cooldown.
	assert.False(t, e.InCooldown("task.urgent", target))

	clk.Advance(6 * time.Minute)
	assert.False(t, e.InCooldown("comment.added", target))
}

func TestInCooldown_ScopedToEventType(t *testing.T) {
	e, _ := newEngine(t)
	e.Record("evt-1", "task.completed", []string{"a"})

	assert.True(t, e.InCooldown("task.completed", "a"))
	assert.False(t, e.InCooldown("comment.added", "a"))
}

func TestInCooldown_StopsAtCutoff(t *testing.T) {
	e, clk := newEngine(t)
	e.Record("old", "comment.added", []string{"a"})
	clk.Advance(20 * time.Minute)
	e.Record("new", "comment.added", []string{"b"})

	assert.True(t, e.InCooldown("comment.added", "b"))
	assert.False(t, e.InCooldown("comment.added", "a"))
}

func TestFilterCooldown(t *testing.T) {
	e, _ := newEngine(t)
	e.Record("evt-1", "comment.added", []string{"a"})

	active, suppressed := e.FilterCooldown("comment.added", []string{"a", "b"})
	assert.Equal(t, []string{"b"}, active)
	assert.Equal(t, []string{"a"}, suppressed)
}

func TestRecordActive(t *testing.T) {
	e, _ := newEngine(t)
	e.Record("evt-1", "comment.added", []string{"a"})

	entry, suppressed, ok := e.RecordActive("evt-2", "comment.added", []string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, entry.Targets)
	assert.Equal(t, []string{"a"}, suppressed)

	_, suppressed, ok = e.RecordActive("evt-3", "comment.added", []string{"a", "b"})
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, suppressed)
	assert.Len(t, e.Entries(), 2)
}

func TestRecordActive_ConcurrentEventsPageOnce(t *testing.T) {
	e, _ := newEngine(t)
	const target = "ops-team@example.com"

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		recorded int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, ok := e.RecordActive(fmt.Sprintf("evt-%d", i), "comment.added", []string{target})
			if ok {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, recorded)
	assert.Len(t, e.Entries(), 1)
}

func TestTrim(t *testing.T) {
	e, clk := newEngine(t)
	e.Record("1", "task.urgent", []string{"x"})
	clk.Advance(30 * time.Minute)
	e.Record("2", "task.urgent", []string{"x"})
	clk.Advance(time.Minute)

	assert.Equal(t, 1, e.Trim(15*time.Minute))
	entries := e.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].EventID)
}
