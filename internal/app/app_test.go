package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/retry"
	"github.com/sandeepkv93/coachd/internal/storage"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Chat.ReplyLatency = 10 * time.Millisecond
	cfg.Chat.ReplyTimeout = time.Second
	cfg.Chat.Retry = retry.Config{MaxAttempts: 1}
	cfg.PersistRetry = retry.Config{MaxAttempts: 1}
	return cfg
}

func openRepo(t *testing.T, path string) *storage.SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.MigrateUp(db))
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	return repo
}

func newApp(t *testing.T, cfg Config, repo storage.Repository) *App {
	t.Helper()
	a := New(cfg, Deps{Repo: repo})
	require.NoError(t, a.Load(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func waitReply(t *testing.T, p *chat.Pending) model.ChatMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := p.Wait(ctx)
	require.NoError(t, err)
	return msg
}

func TestCompletionRateScenario(t *testing.T) {
	a := newApp(t, testConfig(), nil)
	ctx := context.Background()

	goal, err := a.CreateGoal(ctx, "Learn X", "")
	require.NoError(t, err)
	summary := a.Summaries()[0]
	require.Equal(t, 0, summary.Progress)
	require.Equal(t, 0, summary.TasksCompleted)

	read, err := a.AddTask(ctx, goal.ID, "Read docs")
	require.NoError(t, err)
	_, err = a.ToggleTask(ctx, read.ID)
	require.NoError(t, err)
	require.Equal(t, 100, a.Tasks().CompletionRate(goal.ID))

	_, err = a.AddTask(ctx, goal.ID, "Practice")
	require.NoError(t, err)
	require.Equal(t, 50, a.Tasks().CompletionRate(goal.ID))
	require.Equal(t, 50, a.Summaries()[0].Progress)
}

func TestActivateGoalBindsChat(t *testing.T) {
	a := newApp(t, testConfig(), nil)
	ctx := context.Background()

	x, err := a.CreateGoal(ctx, "X", "")
	require.NoError(t, err)
	y, err := a.CreateGoal(ctx, "Y", "")
	require.NoError(t, err)

	_, err = a.ActivateGoal(ctx, x.ID)
	require.NoError(t, err)
	require.Equal(t, x.ID, a.Chat().Bound())

	_, err = a.ActivateGoal(ctx, y.ID)
	require.NoError(t, err)
	require.Equal(t, y.ID, a.Chat().Bound())
	active, ok := a.Goals().Active()
	require.True(t, ok)
	require.Equal(t, y.ID, active.ID)

	require.NoError(t, a.OpenMasterChat())
	require.Equal(t, model.MasterContext, a.Chat().Bound())
	active, ok = a.Goals().Active()
	require.True(t, ok)
	require.Equal(t, y.ID, active.ID)

	_, err = a.ActivateGoal(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestViewTasksKeepsPlaceholder(t *testing.T) {
	a := newApp(t, testConfig(), nil)
	ctx := context.Background()
	goal, err := a.CreateGoal(ctx, "X", "")
	require.NoError(t, err)

	tasks, err := a.ViewTasks(goal.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.True(t, tasks[0].IsPlaceholder())

	_, err = a.EditTask(ctx, tasks[0].ID, "Read docs")
	require.NoError(t, err)
	deleted, err := a.CommitTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.False(t, deleted)

	tasks, err = a.ViewTasks(goal.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.True(t, tasks[1].IsPlaceholder())

	_, err = a.ViewTasks("missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coachd.db")
	ctx := context.Background()

	first := New(testConfig(), Deps{Repo: openRepo(t, path)})
	require.NoError(t, first.Load(ctx))

	goal, err := first.CreateGoal(ctx, "Learn X", "deep dive")
	require.NoError(t, err)
	_, err = first.ActivateGoal(ctx, goal.ID)
	require.NoError(t, err)

	tasks, err := first.ViewTasks(goal.ID)
	require.NoError(t, err)
	_, err = first.EditTask(ctx, tasks[0].ID, "Read docs")
	require.NoError(t, err)
	_, err = first.ToggleTask(ctx, tasks[0].ID)
	require.NoError(t, err)

	pending, err := first.Send("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)
	result, err := first.ApplyAction(goal.ID, reply.ID, chat.Selection{Kind: chat.AcceptAll})
	require.NoError(t, err)
	require.Len(t, result.Added, 3)

	wantTasks := first.Tasks().List(goal.ID)
	wantHistory := first.Chat().History(goal.ID)
	require.NoError(t, first.Close())

	second := New(testConfig(), Deps{Repo: openRepo(t, path)})
	require.NoError(t, second.Load(ctx))
	defer second.Close()

	active, ok := second.Goals().Active()
	require.True(t, ok)
	require.Equal(t, goal.ID, active.ID)
	require.Equal(t, goal.ID, second.Chat().Bound())

	gotTasks := second.Tasks().List(goal.ID)
	require.Len(t, gotTasks, len(wantTasks))
	for i := range wantTasks {
		if wantTasks[i].IsPlaceholder() {
			require.True(t, gotTasks[i].IsPlaceholder())
			continue
		}
		require.Equal(t, wantTasks[i].ID, gotTasks[i].ID)
		require.Equal(t, wantTasks[i].Text, gotTasks[i].Text)
		require.Equal(t, wantTasks[i].Completed, gotTasks[i].Completed)
	}
	require.Len(t, second.Tasks().Completions(goal.ID), 1)

	gotHistory := second.Chat().History(goal.ID)
	require.Len(t, gotHistory, len(wantHistory))
	for i := range wantHistory {
		require.Equal(t, wantHistory[i].ID, gotHistory[i].ID)
		require.Equal(t, wantHistory[i].Applied, gotHistory[i].Applied)
	}

	_, err = second.ApplyAction(goal.ID, reply.ID, chat.Selection{Kind: chat.AcceptAll})
	require.ErrorIs(t, err, model.ErrValidation)
}

// flakyRepo fails task writes while failTasks is set.
type flakyRepo struct {
	*storage.SQLiteRepository
	failTasks atomic.Bool
}

func (r *flakyRepo) CreateTask(ctx context.Context, in storage.Task) error {
	if r.failTasks.Load() {
		return errors.New("disk full")
	}
	return r.SQLiteRepository.CreateTask(ctx, in)
}

func (r *flakyRepo) UpdateTask(ctx context.Context, in storage.Task) error {
	if r.failTasks.Load() {
		return errors.New("disk full")
	}
	return r.SQLiteRepository.UpdateTask(ctx, in)
}

func TestFailedTaskWriteIsRetriedOnNextSync(t *testing.T) {
	repo := &flakyRepo{SQLiteRepository: openRepo(t, filepath.Join(t.TempDir(), "coachd.db"))}
	a := newApp(t, testConfig(), repo)
	ctx := context.Background()

	goal, err := a.CreateGoal(ctx, "Learn X", "")
	require.NoError(t, err)
	read, err := a.AddTask(ctx, goal.ID, "Read docs")
	require.NoError(t, err)

	repo.failTasks.Store(true)
	_, err = a.EditTask(ctx, read.ID, "Read the docs")
	require.NoError(t, err)
	stored, err := repo.GetTask(ctx, read.ID)
	require.NoError(t, err)
	require.Equal(t, "Read docs", stored.Text)

	repo.failTasks.Store(false)
	_, err = a.AddTask(ctx, goal.ID, "Practice")
	require.NoError(t, err)
	stored, err = repo.GetTask(ctx, read.ID)
	require.NoError(t, err)
	require.Equal(t, "Read the docs", stored.Text)
}

func TestDeleteGoalCascades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coachd.db")
	repo := openRepo(t, path)
	a := newApp(t, testConfig(), repo)
	ctx := context.Background()

	goal, err := a.CreateGoal(ctx, "Learn X", "")
	require.NoError(t, err)
	_, err = a.ActivateGoal(ctx, goal.ID)
	require.NoError(t, err)
	task, err := a.AddTask(ctx, goal.ID, "Read docs")
	require.NoError(t, err)
	_, err = a.ToggleTask(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, a.DeleteGoal(ctx, goal.ID))
	require.Empty(t, a.Goals().List())
	require.Empty(t, a.Tasks().List(goal.ID))
	require.Empty(t, a.Chat().History(goal.ID))
	require.Equal(t, model.MasterContext, a.Chat().Bound())

	tasks, err := repo.ListTasks(ctx, storage.TaskListFilter{GoalID: goal.ID})
	require.NoError(t, err)
	require.Empty(t, tasks)
	events, err := repo.ListCompletions(ctx, storage.CompletionListFilter{GoalID: goal.ID})
	require.NoError(t, err)
	require.Empty(t, events)
	msgs, err := repo.ListMessages(ctx, storage.MessageListFilter{ContextID: goal.ID})
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.ErrorIs(t, a.DeleteGoal(ctx, goal.ID), model.ErrNotFound)
}

func TestSeedDemo(t *testing.T) {
	cfg := testConfig()
	cfg.SeedDemo = true
	a := newApp(t, cfg, nil)

	goals := a.Goals().List()
	require.Len(t, goals, 3)
	require.Equal(t, "Learn TypeScript", goals[0].Title)
	require.True(t, goals[0].Active)
	require.Equal(t, goals[0].ID, a.Chat().Bound())

	summaries := a.Summaries()
	require.Equal(t, 1, summaries[0].TasksCompleted)
	require.Equal(t, 3, summaries[0].TotalTasks)
	require.Equal(t, 33, summaries[0].Progress)

	report := a.Report()
	require.Len(t, report.Goals, 3)
	require.Equal(t, 1, report.Week.Completed)
}
