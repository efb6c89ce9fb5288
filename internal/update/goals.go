package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/coachd/internal/analytics"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/views"
)

func (m Model) selectedGoal() (model.Goal, bool) {
	goals := m.app.Goals().List()
	if m.Goals.Cursor < 0 || m.Goals.Cursor >= len(goals) {
		return model.Goal{}, false
	}
	return goals[m.Goals.Cursor], true
}

func (m Model) handleGoalsKey(msg tea.KeyMsg) Model {
	n := len(m.app.Goals().List())
	switch msg.String() {
	case "j", "down":
		if m.Goals.Cursor < n-1 {
			m.Goals.Cursor++
		}
	case "k", "up":
		if m.Goals.Cursor > 0 {
			m.Goals.Cursor--
		}
	case "n":
		m.Goals.Form = GoalFormState{Active: true, Field: GoalFieldTitle}
		m.titleInput.SetValue("")
		m.descArea.SetValue("")
		m.titleInput.Focus()
		m.descArea.Blur()
	case "enter":
		if g, ok := m.selectedGoal(); ok {
			m.activateGoal(g.ID)
		}
	case "c":
		if g, ok := m.selectedGoal(); ok && m.activateGoal(g.ID) {
			m.switchView(ViewChat)
		}
	case "t":
		if g, ok := m.selectedGoal(); ok {
			m.Tasks = TasksState{GoalID: g.ID}
			m.switchView(ViewTasks)
		}
	case "d":
		if g, ok := m.selectedGoal(); ok {
			m.Goals.ConfirmDelete = true
			m.Status = StatusBar{Text: fmt.Sprintf("delete %q with its tasks and chat? [y/N]", g.Title)}
		}
	}
	return m
}

func (m *Model) activateGoal(id string) bool {
	goal, err := m.app.ActivateGoal(context.Background(), id)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return false
	}
	m.Tasks = TasksState{GoalID: goal.ID}
	m.Goals.Cursor = m.goalIndex(goal.ID)
	m.refreshChat()
	m.Status = StatusBar{Text: fmt.Sprintf("active goal: %s", goal.Title)}
	return true
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) Model {
	m.Goals.ConfirmDelete = false
	if msg.String() != "y" {
		m.Status = StatusBar{Text: "delete canceled"}
		return m
	}
	g, ok := m.selectedGoal()
	if !ok {
		return m
	}
	if err := m.app.DeleteGoal(context.Background(), g.ID); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	if m.Tasks.GoalID == g.ID {
		m.Tasks = TasksState{}
	}
	if m.Goals.Cursor > 0 {
		m.Goals.Cursor--
	}
	m.refreshChat()
	m.Status = StatusBar{Text: fmt.Sprintf("deleted goal: %s", g.Title)}
	m.notify("Goal deleted", g.Title, "info")
	return m
}

func (m Model) handleGoalFormKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Goals.Form = GoalFormState{}
		m.titleInput.Blur()
		m.descArea.Blur()
		m.Status = StatusBar{Text: "new goal canceled"}
		return m
	case "tab", "shift+tab":
		if m.Goals.Form.Field == GoalFieldTitle {
			m.Goals.Form.Field = GoalFieldDescription
			m.titleInput.Blur()
			m.descArea.Focus()
		} else {
			m.Goals.Form.Field = GoalFieldTitle
			m.descArea.Blur()
			m.titleInput.Focus()
		}
		return m
	case "enter":
		return m.submitGoalForm()
	}

	if m.Goals.Form.Field == GoalFieldTitle {
		m.titleInput, _ = m.titleInput.Update(msg)
	} else {
		m.descArea, _ = m.descArea.Update(msg)
	}
	return m
}

func (m Model) submitGoalForm() Model {
	goal, err := m.app.CreateGoal(context.Background(), m.titleInput.Value(), m.descArea.Value())
	if err != nil {
		m.Goals.Form.Err = err.Error()
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	m.Goals.Form = GoalFormState{}
	m.titleInput.Blur()
	m.descArea.Blur()
	m.Goals.Cursor = m.goalIndex(goal.ID)
	m.Status = StatusBar{Text: fmt.Sprintf("goal created: %s", goal.Title)}
	return m
}

func (m Model) renderGoalsView() string {
	return views.RenderGoalsPanel(views.GoalsPanelData{
		ListView: m.goalList.View(),
		Count:    len(m.app.Goals().List()),
	})
}

func (m Model) renderGoalSidePane() string {
	form := views.RenderGoalForm(views.GoalFormData{
		Active:          m.Goals.Form.Active,
		TitleView:       m.titleInput.View(),
		DescriptionView: m.descArea.View(),
		Field:           int(m.Goals.Form.Field),
		ErrorText:       m.Goals.Form.Err,
	})
	if form != "" {
		return form
	}
	g, ok := m.selectedGoal()
	if !ok {
		return views.RenderGoalDetail(views.GoalDetailData{})
	}
	summary := analytics.Summarize(g, m.app.Tasks().List(g.ID))
	return views.RenderGoalDetail(views.GoalDetailData{
		Title:        g.Title,
		Description:  strings.TrimSpace(g.Description),
		Active:       g.Active,
		Completed:    summary.TasksCompleted,
		Total:        summary.TotalTasks,
		Progress:     summary.Progress,
		ProgressView: m.goalProgress.ViewAs(float64(summary.Progress) / 100),
		Streak:       analytics.Streak(m.app.Tasks(), g.ID, m.app.Now()),
	})
}
