package model

import (
	"errors"
	"testing"
	"time"
)

func TestGoalValidate(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	goal := Goal{ID: "goal-1", Title: "Learn X", CreatedAt: now}
	if err := goal.Validate(); err != nil {
		t.Fatalf("expected valid goal, got error: %v", err)
	}

	goal.Title = " \t "
	if err := goal.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank title, got: %v", err)
	}
}
