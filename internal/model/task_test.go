package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskValidateSuccess(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		GoalID:    "goal-1",
		Text:      "Read docs",
		CreatedAt: now,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateCompletedRequiresCompletedAt(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:        "task-1",
		GoalID:    "goal-1",
		Text:      "Done task",
		Completed: true,
		CreatedAt: now,
	}
	err := task.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
	if err.Error() != "validation error: completed_at is required when task is completed" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskValidateEmptyCannotComplete(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "task-1", GoalID: "goal-1", Completed: true, CreatedAt: now, CompletedAt: &now}
	if err := task.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestTaskPlaceholder(t *testing.T) {
	if !(Task{Text: "   "}).IsPlaceholder() {
		t.Fatal("expected whitespace-only incomplete task to be a placeholder")
	}
	if (Task{Text: "x"}).IsPlaceholder() {
		t.Fatal("expected task with text not to be a placeholder")
	}
	if (Task{Completed: true}).IsPlaceholder() {
		t.Fatal("expected completed task not to be a placeholder")
	}
}
