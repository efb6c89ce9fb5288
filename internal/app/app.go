// Package app composes the goal, task and chat state with persistence and
// keeps them coherent across screens.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/retry"
	"github.com/sandeepkv93/coachd/internal/storage"
	"github.com/sandeepkv93/coachd/internal/store"
)

type Config struct {
	Chat         chat.Config
	SeedDemo     bool
	PersistRetry retry.Config
}

func DefaultConfig() Config {
	return Config{
		Chat:         chat.DefaultConfig(),
		PersistRetry: retry.Config{MaxAttempts: 3, Delay: 50 * time.Millisecond},
	}
}

// Deps are the collaborators of App. A nil Repo keeps everything in memory.
type Deps struct {
	Repo     storage.Repository
	Provider chat.Provider
	Logger   *log.Logger
	Now      func() time.Time
	NewID    func() string
}

type App struct {
	cfg    Config
	repo   storage.Repository
	logger *log.Logger
	now    func() time.Time

	goals *store.GoalStore
	tasks *store.TaskStore
	chat  *chat.Service

	mu              sync.Mutex
	persistedTasks  map[string]storage.Task
	persistedEvents map[string]string
}

func New(cfg Config, deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	opts := []store.Option{
		store.WithClock(deps.Now),
		store.WithIDGenerator(deps.NewID),
		store.WithLogger(deps.Logger.WithPrefix("store")),
	}
	a := &App{
		cfg:             cfg,
		repo:            deps.Repo,
		logger:          deps.Logger,
		now:             deps.Now,
		goals:           store.NewGoalStore(opts...),
		tasks:           store.NewTaskStore(opts...),
		persistedTasks:  make(map[string]storage.Task),
		persistedEvents: make(map[string]string),
	}
	chatDeps := chat.Deps{
		Provider: deps.Provider,
		Goals:    a.goals,
		Tasks:    a,
		Logger:   deps.Logger.WithPrefix("chat"),
		Now:      deps.Now,
		NewID:    deps.NewID,
	}
	if deps.Repo != nil {
		chatDeps.Recorder = a
	}
	a.chat = chat.NewService(cfg.Chat, chatDeps)
	return a
}

func (a *App) Goals() *store.GoalStore { return a.goals }
func (a *App) Tasks() *store.TaskStore { return a.tasks }
func (a *App) Chat() *chat.Service     { return a.chat }

// Now is the clock the stores and analytics run on.
func (a *App) Now() time.Time { return a.now() }

// Load restores persisted state, seeds the demo goals into an empty store
// when configured, and binds chat to the active goal.
func (a *App) Load(ctx context.Context) error {
	if a.repo != nil {
		if err := a.restore(ctx); err != nil {
			return err
		}
	}
	if len(a.goals.List()) == 0 && a.cfg.SeedDemo {
		if err := a.seedDemo(ctx); err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
	}

	for _, g := range a.goals.List() {
		if _, err := a.tasks.EnsurePlaceholder(g.ID); err != nil {
			return err
		}
	}
	a.chat.Start()
	if active, ok := a.goals.Active(); ok {
		return a.chat.Bind(active.ID)
	}
	return a.chat.Bind(model.MasterContext)
}

func (a *App) restore(ctx context.Context) error {
	goals, err := a.repo.ListGoals(ctx, storage.GoalListFilter{})
	if err != nil {
		return fmt.Errorf("load goals: %w", err)
	}
	tasks, err := a.repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	events, err := a.repo.ListCompletions(ctx, storage.CompletionListFilter{})
	if err != nil {
		return fmt.Errorf("load completions: %w", err)
	}
	messages, err := a.repo.ListMessages(ctx, storage.MessageListFilter{})
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	modelGoals := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		modelGoals = append(modelGoals, goalFromRecord(g))
	}
	if err := a.goals.Restore(modelGoals); err != nil {
		return fmt.Errorf("restore goals: %w", err)
	}

	modelTasks := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		modelTasks = append(modelTasks, taskFromRecord(t))
	}
	modelEvents := make([]model.CompletionEvent, 0, len(events))
	for _, ev := range events {
		modelEvents = append(modelEvents, completionFromRecord(ev))
	}
	if err := a.tasks.Restore(modelTasks, modelEvents); err != nil {
		return fmt.Errorf("restore tasks: %w", err)
	}

	modelMessages := make([]model.ChatMessage, 0, len(messages))
	for _, m := range messages {
		modelMessages = append(modelMessages, messageFromRecord(m))
	}
	if err := a.chat.Restore(modelMessages); err != nil {
		return fmt.Errorf("restore messages: %w", err)
	}

	a.mu.Lock()
	for _, t := range tasks {
		a.persistedTasks[t.ID] = t
	}
	for _, ev := range events {
		a.persistedEvents[ev.ID] = ev.GoalID
	}
	a.mu.Unlock()

	a.logger.Info("state restored", "goals", len(goals), "tasks", len(tasks), "messages", len(messages))
	return nil
}

// Close flushes pending chat replies and stops all subscriptions.
func (a *App) Close() error {
	a.chat.Close()
	a.goals.Close()
	a.tasks.Close()
	return nil
}
