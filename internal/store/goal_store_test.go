package store

import (
	"context"
	"testing"
	"time"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
	"github.com/stretchr/testify/require"
)

func newGoalStore() *GoalStore {
	clock := newFakeClock()
	return NewGoalStore(WithClock(clock.Now), WithIDGenerator(sequentialIDs("goal")))
}

func activeCount(goals []model.Goal) int {
	n := 0
	for _, g := range goals {
		if g.Active {
			n++
		}
	}
	return n
}

func TestGoalStoreCreateListsMostRecentFirst(t *testing.T) {
	s := newGoalStore()

	titles := []string{"Learn TypeScript", "Build Workout Habit", "Read 2 Books per Month"}
	for _, title := range titles {
		g, err := s.Create(title, "")
		require.NoError(t, err)
		require.False(t, g.Active)
	}

	goals := s.List()
	require.Len(t, goals, len(titles))
	require.Equal(t, "Read 2 Books per Month", goals[0].Title)
	require.Equal(t, "Learn TypeScript", goals[2].Title)
	require.LessOrEqual(t, activeCount(goals), 1)
}

func TestGoalStoreCreateRejectsBlankTitle(t *testing.T) {
	s := newGoalStore()
	_, err := s.Create("   ", "desc")
	require.ErrorIs(t, err, model.ErrValidation)
	require.Empty(t, s.List())
}

func TestGoalStoreSetActiveIsExclusive(t *testing.T) {
	s := newGoalStore()
	x, err := s.Create("X", "")
	require.NoError(t, err)
	y, err := s.Create("Y", "")
	require.NoError(t, err)
	_, err = s.Create("Z", "")
	require.NoError(t, err)

	_, err = s.SetActive(x.ID)
	require.NoError(t, err)
	_, err = s.SetActive(y.ID)
	require.NoError(t, err)

	goals := s.List()
	require.Equal(t, 1, activeCount(goals))
	active, ok := s.Active()
	require.True(t, ok)
	require.Equal(t, y.ID, active.ID)
}

func TestGoalStoreSetActiveUnknown(t *testing.T) {
	s := newGoalStore()
	_, err := s.SetActive("missing")
	require.ErrorIs(t, err, model.ErrNotFound)
	_, ok := s.Active()
	require.False(t, ok)
}

func TestGoalStoreDelete(t *testing.T) {
	s := newGoalStore()
	g, err := s.Create("X", "")
	require.NoError(t, err)

	removed, err := s.Delete(g.ID)
	require.NoError(t, err)
	require.Equal(t, g.ID, removed.ID)
	require.Empty(t, s.List())

	_, err = s.Delete(g.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestGoalStoreRestoreKeepsSingleActive(t *testing.T) {
	s := newGoalStore()
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	err := s.Restore([]model.Goal{
		{ID: "a", Title: "A", Active: true, CreatedAt: now},
		{ID: "b", Title: "B", Active: true, CreatedAt: now},
	})
	require.NoError(t, err)
	require.Equal(t, 1, activeCount(s.List()))

	err = s.Restore([]model.Goal{{ID: "a", Title: "A", CreatedAt: now}, {ID: "a", Title: "A", CreatedAt: now}})
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestGoalStorePublishesEvents(t *testing.T) {
	s := newGoalStore()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	g, err := s.Create("X", "")
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, pubsub.CreatedEvent, ev.Type)
		require.Equal(t, g.ID, ev.Payload.ID)
	case <-time.After(time.Second):
		t.Fatal("expected created event")
	}
}
