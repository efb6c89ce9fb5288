package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
)

// GoalStore owns the goal collection and the single active goal.
// Goals are kept most-recent-first.
type GoalStore struct {
	mu     sync.RWMutex
	goals  []model.Goal
	opts   options
	broker *pubsub.Broker[model.Goal]
}

func NewGoalStore(opts ...Option) *GoalStore {
	return &GoalStore{
		opts:   buildOptions(opts),
		broker: pubsub.NewBroker[model.Goal](),
	}
}

func (s *GoalStore) List() []model.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Goal, len(s.goals))
	copy(out, s.goals)
	return out
}

func (s *GoalStore) Get(id string) (model.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Goal{}, fmt.Errorf("%w: goal %q", model.ErrNotFound, id)
	}
	return s.goals[idx], nil
}

func (s *GoalStore) Create(title, description string) (model.Goal, error) {
	goal := model.Goal{
		ID:          s.opts.newID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.opts.now(),
	}
	if err := goal.Validate(); err != nil {
		return model.Goal{}, err
	}

	s.mu.Lock()
	if s.indexOf(goal.ID) >= 0 {
		s.mu.Unlock()
		return model.Goal{}, fmt.Errorf("%w: goal %q already exists", model.ErrConflict, goal.ID)
	}
	s.goals = append([]model.Goal{goal}, s.goals...)
	s.mu.Unlock()

	s.opts.logger.Debug("goal created", "goal_id", goal.ID, "title", goal.Title)
	s.broker.Publish(pubsub.CreatedEvent, goal)
	return goal, nil
}

// SetActive activates id and deactivates every other goal.
func (s *GoalStore) SetActive(id string) (model.Goal, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Goal{}, fmt.Errorf("%w: goal %q", model.ErrNotFound, id)
	}
	var changed []model.Goal
	for i := range s.goals {
		want := i == idx
		if s.goals[i].Active != want {
			s.goals[i].Active = want
			changed = append(changed, s.goals[i])
		}
	}
	active := s.goals[idx]
	s.mu.Unlock()

	s.opts.logger.Debug("goal activated", "goal_id", id)
	for _, g := range changed {
		s.broker.Publish(pubsub.UpdatedEvent, g)
	}
	return active, nil
}

func (s *GoalStore) Active() (model.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.goals {
		if g.Active {
			return g, true
		}
	}
	return model.Goal{}, false
}

func (s *GoalStore) Delete(id string) (model.Goal, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Goal{}, fmt.Errorf("%w: goal %q", model.ErrNotFound, id)
	}
	removed := s.goals[idx]
	s.goals = append(s.goals[:idx], s.goals[idx+1:]...)
	s.mu.Unlock()

	s.opts.logger.Debug("goal deleted", "goal_id", id)
	s.broker.Publish(pubsub.DeletedEvent, removed)
	return removed, nil
}

// Restore replaces the collection with previously persisted goals, given
// most-recent-first. Only the first goal flagged active stays active.
func (s *GoalStore) Restore(goals []model.Goal) error {
	seen := make(map[string]struct{}, len(goals))
	restored := make([]model.Goal, 0, len(goals))
	activeSeen := false
	for _, g := range goals {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, ok := seen[g.ID]; ok {
			return fmt.Errorf("%w: duplicate goal %q", model.ErrConflict, g.ID)
		}
		seen[g.ID] = struct{}{}
		if g.Active {
			if activeSeen {
				g.Active = false
			}
			activeSeen = true
		}
		restored = append(restored, g)
	}

	s.mu.Lock()
	s.goals = restored
	s.mu.Unlock()
	s.opts.logger.Debug("goals restored", "count", len(restored))
	return nil
}

func (s *GoalStore) Subscribe(ctx context.Context) <-chan pubsub.Event[model.Goal] {
	return s.broker.Subscribe(ctx)
}

func (s *GoalStore) Close() {
	s.broker.Shutdown()
}

func (s *GoalStore) indexOf(id string) int {
	for i, g := range s.goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}
