package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notify-pipeline/internal/channels"
	"notify-pipeline/internal/routing"
)

type routeResult struct {
	EventType       string   `json:"event_type"`
	Known           bool     `json:"known"`
	Plan            string   `json:"plan"`
	Priority        string   `json:"priority"`
	Channels        []string `json:"channels"`
	PagesOnCall     bool     `json:"pages_oncall"`
	CooldownMinutes int      `json:"cooldown_minutes"`
}

func routeCmd(load tableLoader) *cobra.Command {
	var plan string
	cmd := &cobra.Command{
		Use:   "route <event_type>",
		Short: "Show the channels and priority an event type resolves to",
		Long: `Resolve an event type against the routing table for a plan tier.

Examples:
  # Enterprise (unlimited) view
  notifyctl route task.urgent

  # Apply the free tier's channel cap
  notifyctl route task.urgent --plan free`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := load()
			if err != nil {
				return err
			}
			eventType := args[0]
			r := channels.NewResolver(zap.NewNop(), table)
			entry := table.Route(eventType)
			return printJSON(cmd.OutOrStdout(), routeResult{
				EventType:       eventType,
				Known:           table.Known(eventType),
				Plan:            plan,
				Priority:        r.ResolvePriority(eventType),
				Channels:        r.ResolveChannels(eventType, plan),
				PagesOnCall:     entry.HasAction(routing.ActionPageOnCall),
				CooldownMinutes: entry.CooldownMinutes,
			})
		},
	}
	cmd.Flags().StringVarP(&plan, "plan", "p", routing.PlanEnterprise, "Plan tier")
	return cmd
}
