package app

import (
	"context"
	"errors"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/storage"
)

// Send posts text to the bound chat context.
func (a *App) Send(text string) (*chat.Pending, error) {
	return a.chat.Post(text)
}

func (a *App) ApplyAction(contextID, messageID string, sel chat.Selection) (chat.ApplyResult, error) {
	return a.chat.ApplyAction(contextID, messageID, sel)
}

// SaveMessage stores a new message or the updated action state of an
// existing one.
func (a *App) SaveMessage(ctx context.Context, msg model.ChatMessage) error {
	if a.repo == nil {
		return nil
	}
	rec := messageToRecord(msg)
	return a.persist(ctx, "save message", func(ctx context.Context) error {
		err := a.repo.UpdateMessage(ctx, rec)
		if errors.Is(err, storage.ErrNotFound) {
			err = a.repo.CreateMessage(ctx, rec)
		}
		return err
	})
}

func messageToRecord(m model.ChatMessage) storage.Message {
	rec := storage.Message{
		ID:        m.ID,
		ContextID: m.ContextID,
		Seq:       m.Seq,
		Role:      string(m.Role),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	if m.Action != nil {
		rec.ActionType = string(m.Action.Type)
		rec.ActionItems = append([]string(nil), m.Action.Items...)
		rec.Applied = append([]bool(nil), m.Applied...)
	}
	return rec
}

func messageFromRecord(r storage.Message) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        r.ID,
		ContextID: r.ContextID,
		Seq:       r.Seq,
		Role:      model.Role(r.Role),
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
	if r.ActionType != "" {
		msg.Action = &model.Action{Type: model.ActionType(r.ActionType), Items: r.ActionItems}
		msg.Applied = make([]bool, len(r.ActionItems))
		copy(msg.Applied, r.Applied)
	}
	return msg
}
