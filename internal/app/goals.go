package app

import (
	"context"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/storage"
)

func (a *App) CreateGoal(ctx context.Context, title, description string) (model.Goal, error) {
	goal, err := a.goals.Create(title, description)
	if err != nil {
		return model.Goal{}, err
	}
	if _, err := a.tasks.EnsurePlaceholder(goal.ID); err != nil {
		return model.Goal{}, err
	}
	a.persist(ctx, "create goal", func(ctx context.Context) error {
		return a.repo.CreateGoal(ctx, goalToRecord(goal))
	})
	a.logger.Info("goal created", "goal_id", goal.ID, "title", goal.Title)
	return goal, nil
}

// ActivateGoal makes id the single active goal and points chat at it.
func (a *App) ActivateGoal(ctx context.Context, id string) (model.Goal, error) {
	goal, err := a.goals.SetActive(id)
	if err != nil {
		return model.Goal{}, err
	}
	if err := a.chat.Bind(goal.ID); err != nil {
		return model.Goal{}, err
	}
	if _, err := a.tasks.EnsurePlaceholder(goal.ID); err != nil {
		return model.Goal{}, err
	}
	a.persist(ctx, "activate goal", func(ctx context.Context) error {
		return a.repo.SetActiveGoal(ctx, goal.ID)
	})
	a.logger.Info("goal activated", "goal_id", goal.ID)
	return goal, nil
}

// OpenMasterChat binds chat to the master coach without touching the
// active goal.
func (a *App) OpenMasterChat() error {
	return a.chat.Bind(model.MasterContext)
}

// DeleteGoal removes the goal with its tasks, completion log and chat
// history.
func (a *App) DeleteGoal(ctx context.Context, id string) error {
	goal, err := a.goals.Delete(id)
	if err != nil {
		return err
	}
	removed := a.tasks.DeleteGoal(id)
	a.chat.Drop(id)

	a.mu.Lock()
	for taskID, rec := range a.persistedTasks {
		if rec.GoalID == id {
			delete(a.persistedTasks, taskID)
		}
	}
	for evID, goalID := range a.persistedEvents {
		if goalID == id {
			delete(a.persistedEvents, evID)
		}
	}
	a.mu.Unlock()

	a.persist(ctx, "delete goal", func(ctx context.Context) error {
		return a.repo.DeleteGoal(ctx, id)
	})
	a.persist(ctx, "delete goal messages", func(ctx context.Context) error {
		_, err := a.repo.DeleteMessages(ctx, id)
		return err
	})
	a.logger.Info("goal deleted", "goal_id", id, "title", goal.Title, "tasks", len(removed))
	return nil
}

func goalToRecord(g model.Goal) storage.Goal {
	return storage.Goal{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Active:      g.Active,
		CreatedAt:   g.CreatedAt,
	}
}

func goalFromRecord(g storage.Goal) model.Goal {
	return model.Goal{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Active:      g.Active,
		CreatedAt:   g.CreatedAt,
	}
}
