package pipeline

import "notify-pipeline/internal/sweeper"

// SweepTargets lists the pipeline state the background sweeper may evict.
func (p *Pipeline) SweepTargets() []sweeper.Target {
	maxAge := p.table.MaxCooldown()
	return []sweeper.Target{
		{Kind: "dedup", Sweep: p.dedup.Sweep},
		{Kind: "ratelimit", Sweep: p.limiter.Sweep},
		{Kind: "escalation", Sweep: func() int { return p.escalation.Trim(maxAge) }},
	}
}
