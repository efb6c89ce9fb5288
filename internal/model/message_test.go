package model

import (
	"errors"
	"testing"
	"time"
)

func TestMessageValidate(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	msg := ChatMessage{ID: "m1", ContextID: MasterContext, Role: RoleUser, Text: "help", CreatedAt: now}
	if err := msg.Validate(); err != nil {
		t.Fatalf("expected valid message, got: %v", err)
	}

	msg.Role = Role("system")
	if err := msg.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for role, got: %v", err)
	}

	msg.Role = RoleUser
	msg.Action = &Action{Type: ActionAddTasks, Items: []string{"a"}}
	if err := msg.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for user action, got: %v", err)
	}
}

func TestMessagePendingItemsAndClone(t *testing.T) {
	msg := ChatMessage{
		Role:    RoleAssistant,
		Action:  &Action{Type: ActionAddTasks, Items: []string{"a", "b"}},
		Applied: []bool{true, false},
	}
	if !msg.HasPendingItems() {
		t.Fatal("expected pending items")
	}

	cp := msg.Clone()
	cp.Applied[1] = true
	cp.Action.Items[0] = "changed"
	if msg.Applied[1] || msg.Action.Items[0] != "a" {
		t.Fatal("clone must not alias the original slices")
	}
	if cp.HasPendingItems() {
		t.Fatal("expected no pending items after applying all")
	}
}
