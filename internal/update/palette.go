package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/commands"
	"github.com/sandeepkv93/coachd/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	}
	m.commandInput, _ = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, nil
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.closePalette()
		return m, nil
	}

	ctx := context.Background()
	var teaCmd tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Goal: func(a commands.GoalArgs) (commands.Result, error) {
			goal, err := m.app.CreateGoal(ctx, a.Title, a.Description)
			if err != nil {
				return commands.Result{}, err
			}
			m.Goals.Cursor = m.goalIndex(goal.ID)
			return commands.Result{Message: fmt.Sprintf("goal created: %s", goal.Title)}, nil
		},
		Task: func(a commands.TaskArgs) (commands.Result, error) {
			goalID := m.Tasks.GoalID
			if goalID == "" {
				active, ok := m.app.Goals().Active()
				if !ok {
					return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no goal selected for the new task"}
				}
				goalID = active.ID
			}
			task, err := m.app.AddTask(ctx, goalID, a.Text)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added task: %s", task.Text)}, nil
		},
		Ask: func(a commands.AskArgs) (commands.Result, error) {
			pending, err := m.app.Send(a.Text)
			if err != nil {
				return commands.Result{}, err
			}
			m.switchView(ViewChat)
			teaCmd = m.watchReply(pending)
			return commands.Result{Message: "coach is thinking..."}, nil
		},
		Switch: func(a commands.SwitchArgs) (commands.Result, error) {
			if strings.EqualFold(a.Target, model.MasterContext) {
				if err := m.app.OpenMasterChat(); err != nil {
					return commands.Result{}, err
				}
				m.switchView(ViewChat)
				return commands.Result{Message: "chatting with Master Coach"}, nil
			}
			goal, err := m.resolveGoal(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if !m.activateGoal(goal.ID) {
				return commands.Result{}, fmt.Errorf("could not switch to %s", goal.Title)
			}
			m.switchView(ViewChat)
			return commands.Result{Message: fmt.Sprintf("chatting in: %s", goal.Title)}, nil
		},
		Accept: func(a commands.AcceptArgs) (commands.Result, error) {
			sel := chat.Selection{Kind: chat.AcceptAll}
			if !a.All {
				sel = chat.Selection{Kind: chat.AcceptItem, Index: a.Index}
			}
			contextID := m.app.Chat().Bound()
			msg, ok := m.latestActionable(contextID)
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no suggestions to accept"}
			}
			applied, err := m.app.ApplyAction(contextID, msg.ID, sel)
			if err != nil {
				return commands.Result{}, err
			}
			m.refreshChat()
			return commands.Result{Message: fmt.Sprintf("added %d task(s) to %s", len(applied.Added), m.contextLabel(contextID))}, nil
		},
		Okay: func() (commands.Result, error) {
			contextID := m.app.Chat().Bound()
			msg, ok := m.latestAssistant(contextID)
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "nothing to acknowledge"}
			}
			applied, err := m.app.ApplyAction(contextID, msg.ID, chat.Selection{Kind: chat.Acknowledge})
			if err != nil {
				return commands.Result{}, err
			}
			m.refreshChat()
			teaCmd = m.watchReply(applied.Pending)
			return commands.Result{Message: "coach is thinking..."}, nil
		},
		Show: func(a commands.ShowArgs) (commands.Result, error) {
			v := View(strings.ToUpper(a.Screen[:1]) + a.Screen[1:])
			if !isKnownView(v) {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown screen: %s", a.Screen)}
			}
			m.switchView(v)
			return commands.Result{Message: fmt.Sprintf("showing %s", strings.ToLower(string(v)))}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
	} else {
		m.Status = StatusBar{Text: res.Message, IsError: false}
	}

	m.closePalette()
	return m, teaCmd
}

// resolveGoal matches a 1-based goal number or a case-insensitive title
// prefix.
func (m Model) resolveGoal(target string) (model.Goal, error) {
	goals := m.app.Goals().List()
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(goals) {
			return model.Goal{}, fmt.Errorf("%w: no goal number %d", model.ErrNotFound, n)
		}
		return goals[n-1], nil
	}
	needle := strings.ToLower(strings.TrimSpace(target))
	for _, g := range goals {
		if strings.HasPrefix(strings.ToLower(g.Title), needle) {
			return g, nil
		}
	}
	return model.Goal{}, fmt.Errorf("%w: no goal matches %q", model.ErrNotFound, target)
}
