package analytics

import "fmt"

type InsightKind string

const (
	InsightHighlight      InsightKind = "highlight"
	InsightBlocker        InsightKind = "blocker"
	InsightRecommendation InsightKind = "recommendation"
)

type Insight struct {
	Kind InsightKind
	Text string
}

// Insights turns a report into short coaching lines.
func Insights(r Report) []Insight {
	var out []Insight

	var best, weakest *GoalReport
	for i := range r.Goals {
		g := &r.Goals[i]
		if g.TotalTasks == 0 {
			continue
		}
		if best == nil || g.Progress > best.Progress {
			best = g
		}
		if g.TotalTasks > g.TasksCompleted && (weakest == nil || g.Progress < weakest.Progress) {
			weakest = g
		}
	}

	if best != nil {
		out = append(out, Insight{Kind: InsightHighlight, Text: fmt.Sprintf("Strongest progress: %s at %d%%", best.Title, best.Progress)})
	}
	if r.Week.BestStreak >= 3 {
		out = append(out, Insight{Kind: InsightHighlight, Text: fmt.Sprintf("You're on a %d-day streak. Keep it going!", r.Week.BestStreak)})
	}
	if weakest != nil && weakest != best {
		open := weakest.TotalTasks - weakest.TasksCompleted
		out = append(out, Insight{Kind: InsightBlocker, Text: fmt.Sprintf("%s needs attention: %d open %s", weakest.Title, open, plural(open, "task", "tasks"))})
	}

	switch {
	case r.Week.Total == 0:
		out = append(out, Insight{Kind: InsightRecommendation, Text: "Add a first task to one of your goals to start tracking progress."})
	case r.Week.CompletionRate >= 80:
		out = append(out, Insight{Kind: InsightRecommendation, Text: "Great momentum! Consider adding a stretch task."})
	case r.Week.CompletionRate < 50:
		out = append(out, Insight{Kind: InsightRecommendation, Text: "Try breaking larger tasks into smaller steps you can finish in one sitting."})
	default:
		out = append(out, Insight{Kind: InsightRecommendation, Text: "Keep a steady pace: aim to finish one task per day."})
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
