package storage

import "time"

type Goal struct {
	ID          string
	Title       string
	Description string
	Active      bool
	CreatedAt   time.Time
}

type Task struct {
	ID          string
	GoalID      string
	Text        string
	Completed   bool
	Position    int
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type Message struct {
	ID          string
	ContextID   string
	Seq         int64
	Role        string
	Text        string
	ActionType  string
	ActionItems []string
	Applied     []bool
	CreatedAt   time.Time
}

type CompletionEvent struct {
	ID          string
	TaskID      string
	GoalID      string
	CompletedAt time.Time
}

type GoalListFilter struct {
	Active *bool
	Limit  int
	Offset int
}

type TaskListFilter struct {
	GoalID    string
	Completed *bool
	Limit     int
	Offset    int
}

type MessageListFilter struct {
	ContextID string
	Limit     int
	Offset    int
}

type CompletionListFilter struct {
	GoalID string
	TaskID string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}
