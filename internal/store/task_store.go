package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
)

// TaskStore owns tasks per goal in insertion order. Every mutation leaves
// the touched goal with exactly one empty, incomplete placeholder task.
type TaskStore struct {
	mu          sync.RWMutex
	byGoal      map[string][]model.Task
	owner       map[string]string
	completions []model.CompletionEvent
	opts        options
	broker      *pubsub.Broker[model.Task]
}

type taskEvent struct {
	kind pubsub.EventType
	task model.Task
}

func NewTaskStore(opts ...Option) *TaskStore {
	return &TaskStore{
		byGoal: make(map[string][]model.Task),
		owner:  make(map[string]string),
		opts:   buildOptions(opts),
		broker: pubsub.NewBroker[model.Task](),
	}
}

func (s *TaskStore) List(goalID string) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := s.byGoal[goalID]
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}

func (s *TaskStore) Get(id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goalID, idx, err := s.locate(id)
	if err != nil {
		return model.Task{}, err
	}
	return s.byGoal[goalID][idx], nil
}

// EnsurePlaceholder is idempotent: it creates the placeholder only when the
// goal has none, and returns it either way.
func (s *TaskStore) EnsurePlaceholder(goalID string) (model.Task, error) {
	if strings.TrimSpace(goalID) == "" {
		return model.Task{}, fmt.Errorf("%w: goal id is required", model.ErrValidation)
	}
	s.mu.Lock()
	events := s.normalize(goalID, "")
	placeholder, _ := s.placeholderOf(goalID)
	s.mu.Unlock()

	s.publish(events)
	return placeholder, nil
}

// Add appends a task with text just before the goal's placeholder.
func (s *TaskStore) Add(goalID, text string) (model.Task, error) {
	added, err := s.AddTasks(goalID, []string{text})
	if err != nil {
		return model.Task{}, err
	}
	return added[0], nil
}

// AddTasks inserts every text in order before the placeholder. Nothing is
// added when any text is blank.
func (s *TaskStore) AddTasks(goalID string, texts []string) ([]model.Task, error) {
	if strings.TrimSpace(goalID) == "" {
		return nil, fmt.Errorf("%w: goal id is required", model.ErrValidation)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no tasks to add", model.ErrValidation)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: task %d has empty text", model.ErrValidation, i+1)
		}
	}

	s.mu.Lock()
	now := s.opts.now()
	added := make([]model.Task, 0, len(texts))
	for _, text := range texts {
		added = append(added, model.Task{
			ID:        s.opts.newID(),
			GoalID:    goalID,
			Text:      strings.TrimSpace(text),
			CreatedAt: now,
		})
	}

	tasks := s.byGoal[goalID]
	at := len(tasks)
	if idx := lastPlaceholder(tasks); idx >= 0 {
		at = idx
	}
	next := make([]model.Task, 0, len(tasks)+len(added))
	next = append(next, tasks[:at]...)
	next = append(next, added...)
	next = append(next, tasks[at:]...)
	s.byGoal[goalID] = next

	events := make([]taskEvent, 0, len(added)+1)
	for _, t := range added {
		s.owner[t.ID] = goalID
		events = append(events, taskEvent{kind: pubsub.CreatedEvent, task: t})
	}
	events = append(events, s.normalize(goalID, "")...)
	s.mu.Unlock()

	s.opts.logger.Debug("tasks added", "goal_id", goalID, "count", len(added))
	s.publish(events)
	return added, nil
}

// UpsertText replaces a task's text in place. Clearing a task that had text
// turns it into the goal's placeholder.
func (s *TaskStore) UpsertText(id, text string) (model.Task, error) {
	s.mu.Lock()
	goalID, idx, err := s.locate(id)
	if err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	task := s.byGoal[goalID][idx]
	if task.Completed && strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return model.Task{}, fmt.Errorf("%w: a completed task cannot be emptied", model.ErrValidation)
	}
	task.Text = text
	s.byGoal[goalID][idx] = task

	events := []taskEvent{{kind: pubsub.UpdatedEvent, task: task}}
	events = append(events, s.normalize(goalID, id)...)
	s.mu.Unlock()

	s.publish(events)
	return task, nil
}

// CommitIfNonEmpty runs when a task loses focus. An empty task is deleted
// unless it is already the trailing placeholder. It reports whether the task
// was deleted.
func (s *TaskStore) CommitIfNonEmpty(id string) (bool, error) {
	s.mu.Lock()
	goalID, idx, err := s.locate(id)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	tasks := s.byGoal[goalID]
	task := tasks[idx]

	var events []taskEvent
	deleted := false
	if task.IsEmpty() && idx != len(tasks)-1 {
		s.removeAt(goalID, idx)
		events = append(events, taskEvent{kind: pubsub.DeletedEvent, task: task})
		deleted = true
	}
	events = append(events, s.normalize(goalID, "")...)
	s.mu.Unlock()

	s.publish(events)
	return deleted, nil
}

func (s *TaskStore) ToggleComplete(id string, completed bool) (model.Task, error) {
	s.mu.Lock()
	goalID, idx, err := s.locate(id)
	if err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	task := s.byGoal[goalID][idx]
	if completed && task.IsEmpty() {
		s.mu.Unlock()
		return model.Task{}, fmt.Errorf("%w: an empty task cannot be completed", model.ErrValidation)
	}
	if task.Completed == completed {
		s.mu.Unlock()
		return task, nil
	}

	task.Completed = completed
	if completed {
		at := s.opts.now()
		task.CompletedAt = &at
		s.completions = append(s.completions, model.CompletionEvent{
			ID:          s.opts.newID(),
			TaskID:      task.ID,
			GoalID:      goalID,
			CompletedAt: at,
		})
	} else {
		task.CompletedAt = nil
		s.dropLatestCompletion(task.ID)
	}
	s.byGoal[goalID][idx] = task

	events := []taskEvent{{kind: pubsub.UpdatedEvent, task: task}}
	events = append(events, s.normalize(goalID, "")...)
	s.mu.Unlock()

	s.opts.logger.Debug("task toggled", "task_id", id, "completed", completed)
	s.publish(events)
	return task, nil
}

func (s *TaskStore) Delete(id string) (model.Task, error) {
	s.mu.Lock()
	goalID, idx, err := s.locate(id)
	if err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	task := s.byGoal[goalID][idx]
	s.removeAt(goalID, idx)
	s.dropCompletions(func(ev model.CompletionEvent) bool { return ev.TaskID == id })

	events := []taskEvent{{kind: pubsub.DeletedEvent, task: task}}
	events = append(events, s.normalize(goalID, "")...)
	s.mu.Unlock()

	s.publish(events)
	return task, nil
}

// DeleteGoal removes every task and completion event of the goal.
func (s *TaskStore) DeleteGoal(goalID string) []model.Task {
	s.mu.Lock()
	removed := s.byGoal[goalID]
	delete(s.byGoal, goalID)
	for _, t := range removed {
		delete(s.owner, t.ID)
	}
	s.dropCompletions(func(ev model.CompletionEvent) bool { return ev.GoalID == goalID })
	s.mu.Unlock()

	events := make([]taskEvent, 0, len(removed))
	for _, t := range removed {
		events = append(events, taskEvent{kind: pubsub.DeletedEvent, task: t})
	}
	s.opts.logger.Debug("goal tasks deleted", "goal_id", goalID, "count", len(removed))
	s.publish(events)
	return removed
}

// CompletionRate is completed / (completed + non-empty incomplete) as a
// rounded percentage. The placeholder counts on neither side.
func (s *TaskStore) CompletionRate(goalID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	completed, open := 0, 0
	for _, t := range s.byGoal[goalID] {
		switch {
		case t.Completed:
			completed++
		case !t.IsEmpty():
			open++
		}
	}
	return Percent(completed, completed+open)
}

// Snapshot returns a copy of every goal's task list.
func (s *TaskStore) Snapshot() map[string][]model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.Task, len(s.byGoal))
	for goalID, tasks := range s.byGoal {
		cp := make([]model.Task, len(tasks))
		copy(cp, tasks)
		out[goalID] = cp
	}
	return out
}

// Completions returns the completion log for goalID, or for every goal when
// goalID is empty.
func (s *TaskStore) Completions(goalID string) []model.CompletionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CompletionEvent, 0, len(s.completions))
	for _, ev := range s.completions {
		if goalID == "" || ev.GoalID == goalID {
			out = append(out, ev)
		}
	}
	return out
}

// CompletionsOn counts the goal's completions on day's calendar date in
// day's location.
func (s *TaskStore) CompletionsOn(goalID string, day time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	y, m, d := day.Date()
	count := 0
	for _, ev := range s.completions {
		if goalID != "" && ev.GoalID != goalID {
			continue
		}
		ey, em, ed := ev.CompletedAt.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			count++
		}
	}
	return count
}

// Restore replaces all tasks and the completion log with persisted state.
// Tasks keep the given order within their goal.
func (s *TaskStore) Restore(tasks []model.Task, events []model.CompletionEvent) error {
	byGoal := make(map[string][]model.Task)
	owner := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, ok := owner[t.ID]; ok {
			return fmt.Errorf("%w: duplicate task %q", model.ErrConflict, t.ID)
		}
		owner[t.ID] = t.GoalID
		byGoal[t.GoalID] = append(byGoal[t.GoalID], t)
	}
	log := make([]model.CompletionEvent, 0, len(events))
	for _, ev := range events {
		if ev.CompletedAt.IsZero() || ev.GoalID == "" {
			return fmt.Errorf("%w: invalid completion event %q", model.ErrValidation, ev.ID)
		}
		log = append(log, ev)
	}

	s.mu.Lock()
	s.byGoal = byGoal
	s.owner = owner
	s.completions = log
	s.mu.Unlock()
	s.opts.logger.Debug("tasks restored", "tasks", len(tasks), "completions", len(log))
	return nil
}

func (s *TaskStore) Subscribe(ctx context.Context) <-chan pubsub.Event[model.Task] {
	return s.broker.Subscribe(ctx)
}

func (s *TaskStore) Close() {
	s.broker.Shutdown()
}

// normalize leaves exactly one placeholder in goalID, preferring keepID, then
// the last one. Callers hold the write lock.
func (s *TaskStore) normalize(goalID, keepID string) []taskEvent {
	tasks := s.byGoal[goalID]
	keep := -1
	for i, t := range tasks {
		if t.ID == keepID && t.IsPlaceholder() {
			keep = i
		}
	}
	if keep < 0 {
		keep = lastPlaceholder(tasks)
	}

	var events []taskEvent
	next := make([]model.Task, 0, len(tasks)+1)
	for i, t := range tasks {
		if t.IsPlaceholder() && i != keep {
			delete(s.owner, t.ID)
			events = append(events, taskEvent{kind: pubsub.DeletedEvent, task: t})
			continue
		}
		next = append(next, t)
	}
	if keep < 0 {
		placeholder := model.Task{
			ID:        s.opts.newID(),
			GoalID:    goalID,
			CreatedAt: s.opts.now(),
		}
		s.owner[placeholder.ID] = goalID
		next = append(next, placeholder)
		events = append(events, taskEvent{kind: pubsub.CreatedEvent, task: placeholder})
	}
	s.byGoal[goalID] = next
	return events
}

func (s *TaskStore) placeholderOf(goalID string) (model.Task, bool) {
	tasks := s.byGoal[goalID]
	if idx := lastPlaceholder(tasks); idx >= 0 {
		return tasks[idx], true
	}
	return model.Task{}, false
}

func (s *TaskStore) locate(id string) (string, int, error) {
	goalID, ok := s.owner[id]
	if !ok {
		return "", -1, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
	}
	for i, t := range s.byGoal[goalID] {
		if t.ID == id {
			return goalID, i, nil
		}
	}
	return "", -1, fmt.Errorf("%w: task %q", model.ErrNotFound, id)
}

func (s *TaskStore) removeAt(goalID string, idx int) {
	tasks := s.byGoal[goalID]
	delete(s.owner, tasks[idx].ID)
	next := make([]model.Task, 0, len(tasks)-1)
	next = append(next, tasks[:idx]...)
	next = append(next, tasks[idx+1:]...)
	s.byGoal[goalID] = next
}

func (s *TaskStore) dropLatestCompletion(taskID string) {
	for i := len(s.completions) - 1; i >= 0; i-- {
		if s.completions[i].TaskID == taskID {
			s.completions = append(s.completions[:i], s.completions[i+1:]...)
			return
		}
	}
}

func (s *TaskStore) dropCompletions(match func(model.CompletionEvent) bool) {
	kept := s.completions[:0]
	for _, ev := range s.completions {
		if !match(ev) {
			kept = append(kept, ev)
		}
	}
	s.completions = kept
}

func (s *TaskStore) publish(events []taskEvent) {
	for _, ev := range events {
		s.broker.Publish(ev.kind, ev.task)
	}
}

func lastPlaceholder(tasks []model.Task) int {
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].IsPlaceholder() {
			return i
		}
	}
	return -1
}

// Percent returns part/total as a rounded percentage, 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
