// Package analytics derives read-only rollups from goal and task snapshots.
// Nothing here keeps state: the same inputs always give the same report.
package analytics

import (
	"math"
	"time"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/store"
)

const (
	daysPerWeek = 7
	maxStreak   = 3650
)

// CompletionLog supplies daily completion counts. An empty goalID counts
// every goal.
type CompletionLog interface {
	CompletionsOn(goalID string, day time.Time) int
}

type GoalSummary struct {
	GoalID         string
	Title          string
	Active         bool
	TasksCompleted int
	TotalTasks     int
	Progress       int
}

type DayBucket struct {
	Day       time.Time
	Completed int
	Total     int
}

type WeeklyRollup struct {
	Days           []DayBucket
	Completed      int
	Total          int
	CompletionRate int
	BestStreak     int
}

type GoalReport struct {
	GoalSummary
	Streak int
	Trend  int
}

type Report struct {
	GeneratedAt time.Time
	Goals       []GoalReport
	Week        WeeklyRollup
	Insights    []Insight
}

// Progress is completed/total as a rounded percentage. The empty placeholder
// row is not a task; a goal without tasks reports 0.
func Progress(tasks []model.Task) int {
	completed, total := counts(tasks)
	return store.Percent(completed, total)
}

func Summarize(goal model.Goal, tasks []model.Task) GoalSummary {
	completed, total := counts(tasks)
	return GoalSummary{
		GoalID:         goal.ID,
		Title:          goal.Title,
		Active:         goal.Active,
		TasksCompleted: completed,
		TotalTasks:     total,
		Progress:       store.Percent(completed, total),
	}
}

// Streak counts consecutive days with at least one completion, ending today.
// A day without completions yet does not break a streak that ran through
// yesterday.
func Streak(log CompletionLog, goalID string, today time.Time) int {
	day := startOfDay(today)
	if log.CompletionsOn(goalID, day) == 0 {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for streak < maxStreak && log.CompletionsOn(goalID, day) > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// Trend compares completions of the last seven days with the seven days
// before, as a rounded percentage change.
func Trend(log CompletionLog, goalID string, today time.Time) int {
	day := startOfDay(today)
	current, previous := 0, 0
	for i := 0; i < daysPerWeek; i++ {
		current += log.CompletionsOn(goalID, day.AddDate(0, 0, -i))
		previous += log.CompletionsOn(goalID, day.AddDate(0, 0, -i-daysPerWeek))
	}
	base := previous
	if base < 1 {
		base = 1
	}
	return int(math.Round(float64(current-previous) * 100 / float64(base)))
}

// WeekBuckets returns the seven days ending today, oldest first. A day's
// total is its completions plus the tasks that were still open at its end.
func WeekBuckets(log CompletionLog, goalID string, tasks []model.Task, today time.Time) []DayBucket {
	start := startOfDay(today)
	out := make([]DayBucket, 0, daysPerWeek)
	for i := daysPerWeek - 1; i >= 0; i-- {
		day := start.AddDate(0, 0, -i)
		end := day.AddDate(0, 0, 1)
		completed := log.CompletionsOn(goalID, day)
		open := 0
		for _, t := range tasks {
			if t.IsEmpty() || !t.CreatedAt.Before(end) {
				continue
			}
			if t.CompletedAt == nil || !t.CompletedAt.Before(end) {
				open++
			}
		}
		out = append(out, DayBucket{Day: day, Completed: completed, Total: completed + open})
	}
	return out
}

// Rollup sums the daily buckets and keeps the best of the given streaks.
func Rollup(days []DayBucket, streaks []int) WeeklyRollup {
	r := WeeklyRollup{Days: append([]DayBucket(nil), days...)}
	for _, d := range days {
		r.Completed += d.Completed
		r.Total += d.Total
	}
	r.CompletionRate = store.Percent(r.Completed, r.Total)
	for _, s := range streaks {
		if s > r.BestStreak {
			r.BestStreak = s
		}
	}
	return r
}

// Build derives the full report for the given snapshots.
func Build(goals []model.Goal, tasks map[string][]model.Task, log CompletionLog, today time.Time) Report {
	report := Report{GeneratedAt: today, Goals: make([]GoalReport, 0, len(goals))}
	streaks := make([]int, 0, len(goals))
	var all []model.Task
	for _, g := range goals {
		goalTasks := tasks[g.ID]
		all = append(all, goalTasks...)
		gr := GoalReport{
			GoalSummary: Summarize(g, goalTasks),
			Streak:      Streak(log, g.ID, today),
			Trend:       Trend(log, g.ID, today),
		}
		streaks = append(streaks, gr.Streak)
		report.Goals = append(report.Goals, gr)
	}
	report.Week = Rollup(WeekBuckets(log, "", all, today), streaks)
	report.Insights = Insights(report)
	return report
}

func counts(tasks []model.Task) (completed, total int) {
	for _, t := range tasks {
		if t.IsPlaceholder() {
			continue
		}
		total++
		if t.Completed {
			completed++
		}
	}
	return completed, total
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
