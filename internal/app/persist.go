package app

import (
	"context"
	"errors"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/retry"
	"github.com/sandeepkv93/coachd/internal/storage"
)

// persist runs a storage call with retries. Failures are logged and
// returned: the in-memory state stays authoritative for the running session.
func (a *App) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if a.repo == nil {
		return nil
	}
	err := retry.Run(ctx, a.cfg.PersistRetry, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		a.logger.Error("persistence failed", "op", op, "err", err)
	}
	return err
}

// syncGoal writes the difference between the goal's tasks and completion
// log and what was last persisted. Placeholders are never stored. A failed
// write is not recorded, so the next sync tries it again.
func (a *App) syncGoal(ctx context.Context, goalID string) {
	if a.repo == nil {
		return
	}
	tasks := a.tasks.List(goalID)
	events := a.tasks.Completions(goalID)

	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t.IsPlaceholder() {
			continue
		}
		rec := taskToRecord(t, i)
		seen[t.ID] = struct{}{}
		prev, known := a.persistedTasks[t.ID]
		if known && sameTask(prev, rec) {
			continue
		}
		err := a.persist(ctx, "save task", func(ctx context.Context) error {
			if known {
				err := a.repo.UpdateTask(ctx, rec)
				if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
			}
			return a.repo.CreateTask(ctx, rec)
		})
		if err == nil {
			a.persistedTasks[t.ID] = rec
		}
	}
	for id, rec := range a.persistedTasks {
		if rec.GoalID != goalID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		err := a.persist(ctx, "delete task", func(ctx context.Context) error {
			return ignoreNotFound(a.repo.DeleteTask(ctx, id))
		})
		if err == nil {
			delete(a.persistedTasks, id)
		}
	}

	live := make(map[string]struct{}, len(events))
	for _, ev := range events {
		live[ev.ID] = struct{}{}
		if _, ok := a.persistedEvents[ev.ID]; ok {
			continue
		}
		rec := completionToRecord(ev)
		err := a.persist(ctx, "save completion", func(ctx context.Context) error {
			return a.repo.CreateCompletion(ctx, rec)
		})
		if err == nil {
			a.persistedEvents[ev.ID] = goalID
		}
	}
	for id, owner := range a.persistedEvents {
		if owner != goalID {
			continue
		}
		if _, ok := live[id]; ok {
			continue
		}
		err := a.persist(ctx, "delete completion", func(ctx context.Context) error {
			return ignoreNotFound(a.repo.DeleteCompletion(ctx, id))
		})
		if err == nil {
			delete(a.persistedEvents, id)
		}
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func sameTask(a, b storage.Task) bool {
	if a.Text != b.Text || a.Completed != b.Completed || a.Position != b.Position || a.GoalID != b.GoalID {
		return false
	}
	switch {
	case a.CompletedAt == nil && b.CompletedAt == nil:
		return true
	case a.CompletedAt == nil || b.CompletedAt == nil:
		return false
	default:
		return a.CompletedAt.Equal(*b.CompletedAt)
	}
}

func taskToRecord(t model.Task, position int) storage.Task {
	return storage.Task{
		ID:          t.ID,
		GoalID:      t.GoalID,
		Text:        t.Text,
		Completed:   t.Completed,
		Position:    position,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func taskFromRecord(r storage.Task) model.Task {
	return model.Task{
		ID:          r.ID,
		GoalID:      r.GoalID,
		Text:        r.Text,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

func completionToRecord(ev model.CompletionEvent) storage.CompletionEvent {
	return storage.CompletionEvent{
		ID:          ev.ID,
		TaskID:      ev.TaskID,
		GoalID:      ev.GoalID,
		CompletedAt: ev.CompletedAt,
	}
}

func completionFromRecord(r storage.CompletionEvent) model.CompletionEvent {
	return model.CompletionEvent{
		ID:          r.ID,
		TaskID:      r.TaskID,
		GoalID:      r.GoalID,
		CompletedAt: r.CompletedAt,
	}
}
