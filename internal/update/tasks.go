package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/coachd/internal/analytics"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/views"
)

func (m Model) currentTasks() []model.Task {
	if m.Tasks.GoalID == "" {
		return nil
	}
	return m.app.Tasks().List(m.Tasks.GoalID)
}

func (m Model) selectedTask() (model.Task, bool) {
	tasks := m.currentTasks()
	if m.Tasks.Cursor < 0 || m.Tasks.Cursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.Tasks.Cursor], true
}

func (m Model) taskIndex(id string) int {
	for i, t := range m.currentTasks() {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) handleTasksKey(msg tea.KeyMsg) Model {
	if m.Tasks.GoalID == "" {
		m.Status = StatusBar{Text: "no goal selected: pick one on the goals screen", IsError: true}
		return m
	}
	n := len(m.currentTasks())
	switch msg.String() {
	case "j", "down":
		if m.Tasks.Cursor < n-1 {
			m.Tasks.Cursor++
		}
	case "k", "up":
		if m.Tasks.Cursor > 0 {
			m.Tasks.Cursor--
		}
	case "enter", "e":
		if t, ok := m.selectedTask(); ok {
			m.startTaskEdit(t)
		}
	case "a":
		m = m.editPlaceholder()
	case " ", "space", "x":
		t, ok := m.selectedTask()
		if !ok {
			return m
		}
		updated, err := m.app.ToggleTask(context.Background(), t.ID)
		if err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m
		}
		if updated.Completed {
			m.Status = StatusBar{Text: fmt.Sprintf("completed: %s", updated.Text)}
		} else {
			m.Status = StatusBar{Text: fmt.Sprintf("reopened: %s", updated.Text)}
		}
	case "d":
		t, ok := m.selectedTask()
		if !ok {
			return m
		}
		if err := m.app.DeleteTask(context.Background(), t.ID); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m
		}
		m.Status = StatusBar{Text: fmt.Sprintf("deleted task: %s", t.Text)}
	case "tab":
		m.cycleTaskGoal()
	}
	return m
}

func (m *Model) cycleTaskGoal() {
	goals := m.app.Goals().List()
	if len(goals) == 0 {
		return
	}
	next := 0
	for i, g := range goals {
		if g.ID == m.Tasks.GoalID {
			next = (i + 1) % len(goals)
			break
		}
	}
	m.Tasks = TasksState{GoalID: goals[next].ID}
	if _, err := m.app.ViewTasks(goals[next].ID); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.Status = StatusBar{Text: fmt.Sprintf("tasks for: %s", goals[next].Title)}
}

func (m *Model) startTaskEdit(t model.Task) {
	m.Tasks.Editing = true
	m.Tasks.EditID = t.ID
	m.Tasks.Cursor = m.taskIndex(t.ID)
	m.taskInput.SetValue(t.Text)
	m.taskInput.CursorEnd()
	m.taskInput.Focus()
}

func (m Model) editPlaceholder() Model {
	tasks, err := m.app.ViewTasks(m.Tasks.GoalID)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].IsPlaceholder() {
			m.startTaskEdit(tasks[i])
			break
		}
	}
	return m
}

func (m Model) handleTaskEditKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		return m.commitTaskEdit()
	case "enter":
		id := m.Tasks.EditID
		m = m.commitTaskEdit()
		if t, err := m.app.Tasks().Get(id); err == nil && !t.IsEmpty() {
			m = m.editPlaceholder()
		}
		return m
	}

	before := m.taskInput.Value()
	m.taskInput, _ = m.taskInput.Update(msg)
	after := m.taskInput.Value()
	if after == before {
		return m
	}
	if _, err := m.app.EditTask(context.Background(), m.Tasks.EditID, after); err != nil {
		m.taskInput.SetValue(before)
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	if idx := m.taskIndex(m.Tasks.EditID); idx >= 0 {
		m.Tasks.Cursor = idx
	}
	return m
}

// commitTaskEdit leaves edit mode. An emptied row disappears unless it is
// the trailing placeholder.
func (m Model) commitTaskEdit() Model {
	id := m.Tasks.EditID
	m.Tasks.Editing = false
	m.Tasks.EditID = ""
	m.taskInput.Blur()
	if id == "" {
		return m
	}
	deleted, err := m.app.CommitTask(context.Background(), id)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	if deleted {
		m.Status = StatusBar{Text: "empty task removed"}
		return m
	}
	if idx := m.taskIndex(id); idx >= 0 {
		m.Tasks.Cursor = idx
	}
	return m
}

func (m Model) renderTasksView() string {
	goalTitle := ""
	if g, err := m.app.Goals().Get(m.Tasks.GoalID); err == nil {
		goalTitle = g.Title
	}
	tasks := m.currentTasks()
	rows := make([]views.TaskRowData, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, views.TaskRowData{
			ID:          t.ID,
			Text:        t.Text,
			Completed:   t.Completed,
			Placeholder: t.IsPlaceholder(),
			Editing:     m.Tasks.Editing && m.Tasks.EditID == t.ID,
		})
	}
	return views.RenderTasksPanel(views.TasksPanelData{
		GoalTitle: goalTitle,
		Rows:      rows,
		Cursor:    m.Tasks.Cursor,
		EditView:  m.taskInput.View(),
	})
}

func (m Model) renderTaskSidePane() string {
	g, err := m.app.Goals().Get(m.Tasks.GoalID)
	if err != nil {
		return views.RenderTaskSummary(views.TaskSummaryData{})
	}
	summary := analytics.Summarize(g, m.currentTasks())
	return views.RenderTaskSummary(views.TaskSummaryData{
		GoalTitle:      g.Title,
		Completed:      summary.TasksCompleted,
		Total:          summary.TotalTasks,
		Progress:       summary.Progress,
		ProgressView:   m.goalProgress.ViewAs(float64(summary.Progress) / 100),
		CompletedToday: m.app.Tasks().CompletionsOn(g.ID, m.app.Now()),
		Streak:         analytics.Streak(m.app.Tasks(), g.ID, m.app.Now()),
	})
}
