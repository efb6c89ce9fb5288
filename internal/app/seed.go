package app

import "context"

type demoGoal struct {
	title       string
	description string
	tasks       []string
	completed   int
}

// Listed oldest first so the first goal on screen is the last one created.
var demoGoals = []demoGoal{
	{
		title:       "Read 2 Books per Month",
		description: "Develop consistent reading habit for personal growth",
	},
	{
		title:       "Build Workout Habit",
		description: "Exercise 30 minutes daily, 5 days per week",
	},
	{
		title:       "Learn TypeScript",
		description: "Master TypeScript fundamentals and advanced patterns to improve code quality",
		tasks: []string{
			"Complete TypeScript handbook chapter 1",
			"Build a simple TypeScript project",
			"Practice generic types exercises",
		},
		completed: 1,
	},
}

func (a *App) seedDemo(ctx context.Context) error {
	var lastID string
	for _, demo := range demoGoals {
		goal, err := a.CreateGoal(ctx, demo.title, demo.description)
		if err != nil {
			return err
		}
		lastID = goal.ID
		if len(demo.tasks) == 0 {
			continue
		}
		added, err := a.tasks.AddTasks(goal.ID, demo.tasks)
		if err != nil {
			return err
		}
		for _, t := range added[:demo.completed] {
			if _, err := a.tasks.ToggleComplete(t.ID, true); err != nil {
				return err
			}
		}
		a.syncGoal(ctx, goal.ID)
	}
	if lastID == "" {
		return nil
	}
	_, err := a.ActivateGoal(ctx, lastID)
	return err
}
