package app

import (
	"context"

	"github.com/sandeepkv93/coachd/internal/model"
)

// ViewTasks switches task scope to goalID and returns its tasks, placeholder
// included.
func (a *App) ViewTasks(goalID string) ([]model.Task, error) {
	if _, err := a.goals.Get(goalID); err != nil {
		return nil, err
	}
	if _, err := a.tasks.EnsurePlaceholder(goalID); err != nil {
		return nil, err
	}
	return a.tasks.List(goalID), nil
}

func (a *App) AddTask(ctx context.Context, goalID, text string) (model.Task, error) {
	if _, err := a.goals.Get(goalID); err != nil {
		return model.Task{}, err
	}
	task, err := a.tasks.Add(goalID, text)
	if err != nil {
		return model.Task{}, err
	}
	a.syncGoal(ctx, goalID)
	return task, nil
}

// AddTasks feeds accepted chat suggestions into the goal's task list.
func (a *App) AddTasks(goalID string, texts []string) ([]model.Task, error) {
	if _, err := a.goals.Get(goalID); err != nil {
		return nil, err
	}
	added, err := a.tasks.AddTasks(goalID, texts)
	if err != nil {
		return nil, err
	}
	a.syncGoal(context.Background(), goalID)
	return added, nil
}

func (a *App) EditTask(ctx context.Context, taskID, text string) (model.Task, error) {
	task, err := a.tasks.UpsertText(taskID, text)
	if err != nil {
		return model.Task{}, err
	}
	a.syncGoal(ctx, task.GoalID)
	return task, nil
}

// CommitTask runs when a task row loses focus. It reports whether the row
// was removed for being empty.
func (a *App) CommitTask(ctx context.Context, taskID string) (bool, error) {
	task, err := a.tasks.Get(taskID)
	if err != nil {
		return false, err
	}
	deleted, err := a.tasks.CommitIfNonEmpty(taskID)
	if err != nil {
		return false, err
	}
	a.syncGoal(ctx, task.GoalID)
	return deleted, nil
}

// ToggleTask flips the completion of a task.
func (a *App) ToggleTask(ctx context.Context, taskID string) (model.Task, error) {
	current, err := a.tasks.Get(taskID)
	if err != nil {
		return model.Task{}, err
	}
	task, err := a.tasks.ToggleComplete(taskID, !current.Completed)
	if err != nil {
		return model.Task{}, err
	}
	a.syncGoal(ctx, task.GoalID)
	return task, nil
}

func (a *App) DeleteTask(ctx context.Context, taskID string) error {
	task, err := a.tasks.Delete(taskID)
	if err != nil {
		return err
	}
	a.syncGoal(ctx, task.GoalID)
	return nil
}
