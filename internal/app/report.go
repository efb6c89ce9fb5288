package app

import "github.com/sandeepkv93/coachd/internal/analytics"

// Summaries returns per-goal progress in goal list order.
func (a *App) Summaries() []analytics.GoalSummary {
	goals := a.goals.List()
	out := make([]analytics.GoalSummary, 0, len(goals))
	for _, g := range goals {
		out = append(out, analytics.Summarize(g, a.tasks.List(g.ID)))
	}
	return out
}

// Report derives analytics from the current snapshots.
func (a *App) Report() analytics.Report {
	return analytics.Build(a.goals.List(), a.tasks.Snapshot(), a.tasks, a.now())
}
