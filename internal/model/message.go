package model

import (
	"fmt"
	"strings"
	"time"
)

// MasterContext is the chat context not bound to any goal.
const MasterContext = "master"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

type ActionType string

const ActionAddTasks ActionType = "add_tasks"

// Action is a typed suggestion carried by an assistant message.
type Action struct {
	Type  ActionType
	Items []string
}

type ChatMessage struct {
	ID        string
	ContextID string
	Seq       int64
	Role      Role
	Text      string
	CreatedAt time.Time
	Action    *Action
	// Applied marks which Action.Items were already turned into tasks.
	Applied []bool
}

// HasPendingItems reports whether any suggested item has not been applied yet.
func (m ChatMessage) HasPendingItems() bool {
	if m.Action == nil {
		return false
	}
	for i := range m.Action.Items {
		if i >= len(m.Applied) || !m.Applied[i] {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots never alias store-owned slices.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.Action != nil {
		a := *m.Action
		a.Items = append([]string(nil), m.Action.Items...)
		out.Action = &a
	}
	if m.Applied != nil {
		out.Applied = append([]bool(nil), m.Applied...)
	}
	return out
}

func (m ChatMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: message id is required", ErrValidation)
	}
	if strings.TrimSpace(m.ContextID) == "" {
		return fmt.Errorf("%w: message context_id is required", ErrValidation)
	}
	if !m.Role.IsValid() {
		return fmt.Errorf("%w: invalid message role %q", ErrValidation, m.Role)
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if m.Action != nil && m.Role != RoleAssistant {
		return fmt.Errorf("%w: only assistant messages carry actions", ErrValidation)
	}
	return nil
}
