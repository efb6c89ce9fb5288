package model

import (
	"fmt"
	"strings"
	"time"
)

type Goal struct {
	ID          string
	Title       string
	Description string
	Active      bool
	CreatedAt   time.Time
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: goal id is required", ErrValidation)
	}
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: goal title is required", ErrValidation)
	}
	if g.CreatedAt.IsZero() {
		return fmt.Errorf("%w: goal created_at is required", ErrValidation)
	}
	return nil
}
