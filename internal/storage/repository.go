package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateGoal(ctx context.Context, in Goal) error
	GetGoal(ctx context.Context, id string) (Goal, error)
	UpdateGoal(ctx context.Context, in Goal) error
	DeleteGoal(ctx context.Context, id string) error
	ListGoals(ctx context.Context, filter GoalListFilter) ([]Goal, error)
	SetActiveGoal(ctx context.Context, id string) error

	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	CreateMessage(ctx context.Context, in Message) error
	GetMessage(ctx context.Context, id string) (Message, error)
	UpdateMessage(ctx context.Context, in Message) error
	DeleteMessages(ctx context.Context, contextID string) (int64, error)
	ListMessages(ctx context.Context, filter MessageListFilter) ([]Message, error)

	CreateCompletion(ctx context.Context, in CompletionEvent) error
	DeleteCompletion(ctx context.Context, id string) error
	ListCompletions(ctx context.Context, filter CompletionListFilter) ([]CompletionEvent, error)
}
