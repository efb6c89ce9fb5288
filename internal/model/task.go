package model

import (
	"fmt"
	"strings"
	"time"
)

type Task struct {
	ID          string
	GoalID      string
	Text        string
	Completed   bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// IsPlaceholder reports whether the task is the empty, ready-to-type row.
func (t Task) IsPlaceholder() bool {
	return !t.Completed && strings.TrimSpace(t.Text) == ""
}

// IsEmpty reports whether the task carries no text.
func (t Task) IsEmpty() bool {
	return strings.TrimSpace(t.Text) == ""
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: task id is required", ErrValidation)
	}
	if strings.TrimSpace(t.GoalID) == "" {
		return fmt.Errorf("%w: task goal_id is required", ErrValidation)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("%w: task created_at is required", ErrValidation)
	}
	if t.Completed && t.IsEmpty() {
		return fmt.Errorf("%w: an empty task cannot be completed", ErrValidation)
	}
	if t.Completed && t.CompletedAt == nil {
		return fmt.Errorf("%w: completed_at is required when task is completed", ErrValidation)
	}
	if !t.Completed && t.CompletedAt != nil {
		return fmt.Errorf("%w: completed_at must be nil when task is not completed", ErrValidation)
	}
	return nil
}

// CompletionEvent records a single incomplete->complete transition.
type CompletionEvent struct {
	ID          string
	TaskID      string
	GoalID      string
	CompletedAt time.Time
}
