package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/pipeline"
	"notify-pipeline/internal/preferences"
	"notify-pipeline/internal/store"
)

type simulatedEvent struct {
	EventType           string         `json:"event_type"`
	Assignee            string         `json:"assignee"`
	Data                map[string]any `json:"data"`
	AssigneePreferences map[string]any `json:"assignee_preferences"`
}

type simulatedOutcome struct {
	Index   int            `json:"index"`
	EventID string         `json:"event_id"`
	At      time.Time      `json:"at"`
	Outcome models.Outcome `json:"outcome"`
}

// simClock starts at start and only moves when advanced.
type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func simulateCmd(load tableLoader) *cobra.Command {
	var (
		step  time.Duration
		plans map[string]string
	)
	cmd := &cobra.Command{
		Use:   "simulate <events.json>",
		Short: "Replay a JSON array of events through an in-memory pipeline",
		Long: `Run each event in the file through a fresh pipeline backed by an in-memory
store and print the outcomes. Time is simulated: it starts at the current
time and advances by --step after each event.

Examples:
  notifyctl simulate events.json
  notifyctl simulate events.json --step 30s --plan alice=free`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := load()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			var events []simulatedEvent
			if err := json.Unmarshal(raw, &events); err != nil {
				return fmt.Errorf("failed to parse events: %w", err)
			}

			prefs := preferences.New(table)
			for user, plan := range plans {
				if _, ok := table.Plan(plan); !ok {
					return fmt.Errorf("unknown plan %q for %s", plan, user)
				}
				profile, _ := prefs.Profile(user)
				profile.Plan = plan
				prefs.Register(user, profile)
			}

			clock := &simClock{t: time.Now().UTC()}
			st := store.NewMemoryStore()
			p := pipeline.New(zap.NewNop(), table, prefs, st, nil, pipeline.Options{Now: clock.Now})

			out := make([]simulatedOutcome, 0, len(events))
			for i, se := range events {
				ev := models.Event{
					EventID:             fmt.Sprintf("sim-%03d", i+1),
					EventType:           se.EventType,
					Assignee:            se.Assignee,
					Data:                se.Data,
					AssigneePreferences: se.AssigneePreferences,
					ReceivedAt:          clock.Now(),
				}
				res, err := p.Process(context.Background(), ev)
				if err != nil {
					return fmt.Errorf("event %d: %w", i, err)
				}
				out = append(out, simulatedOutcome{Index: i, EventID: ev.EventID, At: ev.ReceivedAt, Outcome: res})
				clock.advance(step)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().DurationVar(&step, "step", 0, "Simulated time between events")
	cmd.Flags().StringToStringVar(&plans, "plan", nil, "Recipient plan overrides, user=tier")
	return cmd
}
