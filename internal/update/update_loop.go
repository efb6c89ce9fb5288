package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
	"github.com/sandeepkv93/coachd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChatEventCmd(m.chatEvents),
		waitForGoalEventCmd(m.goalEvents),
		waitForTaskEventCmd(m.taskEvents),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.WindowSizeMsg:
		if typed.Height > 20 {
			m.chatViewport.Height = typed.Height - 12
		}
		return m, nil
	case spinner.TickMsg:
		if m.spinnerActive {
			if !m.awaitingReply() {
				m.spinnerActive = false
				return m, nil
			}
			var cmd tea.Cmd
			m.replySpinner, cmd = m.replySpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.switchView(typed.View)
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case ChatEventMsg:
		m.onChatEvent(typed.Event)
		return m, waitForChatEventCmd(m.chatEvents)
	case GoalEventMsg:
		m.onGoalEvent(typed)
		return m, waitForGoalEventCmd(m.goalEvents)
	case TaskEventMsg:
		m.reportStale = true
		return m, waitForTaskEventCmd(m.taskEvents)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keyStr := msg.String()
	if keyStr == "ctrl+c" {
		return m.quit()
	}
	if m.Palette.Active {
		if keyStr == m.Keys.Help && m.commandInput.Value() == "" {
			m.HelpVisible = !m.HelpVisible
			return m, nil
		}
		return m.handlePaletteKey(msg)
	}
	if m.Goals.Form.Active {
		return m.handleGoalFormKey(msg), nil
	}
	if m.Tasks.Editing {
		return m.handleTaskEditKey(msg), nil
	}
	if m.Chat.Composing {
		return m.handleComposeKey(msg)
	}
	if m.Goals.ConfirmDelete {
		return m.handleConfirmDeleteKey(msg), nil
	}

	switch keyStr {
	case "/":
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active", IsError: false}
		return m, nil
	case m.Keys.Goals:
		m.switchView(ViewGoals)
		return m, nil
	case m.Keys.Tasks:
		m.switchView(ViewTasks)
		return m, nil
	case m.Keys.Chat:
		m.switchView(ViewChat)
		return m, nil
	case m.Keys.Analytics:
		m.switchView(ViewAnalytics)
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		if m.HelpVisible {
			m.Status = StatusBar{Text: "help shown", IsError: false}
		} else {
			m.Status = StatusBar{Text: "help hidden", IsError: false}
		}
		return m, nil
	case m.Keys.Quit:
		return m.quit()
	}

	switch m.CurrentView {
	case ViewGoals:
		return m.handleGoalsKey(msg), nil
	case ViewTasks:
		return m.handleTasksKey(msg), nil
	case ViewChat:
		return m.handleChatKey(msg)
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	m.Quitting = true
	if err := m.persistSessionState(); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("session state not saved: %v", err), IsError: true}
	}
	return m, tea.Quit
}

func (m *Model) switchView(v View) {
	m.CurrentView = v
	switch v {
	case ViewTasks:
		if m.Tasks.GoalID == "" {
			if active, ok := m.app.Goals().Active(); ok {
				m.Tasks.GoalID = active.ID
			}
		}
	case ViewChat:
		m.refreshChat()
	case ViewAnalytics:
		m.reportStale = true
	}
	if err := m.persistSessionState(); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("session state not saved: %v", err), IsError: true}
	}
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewGoals:
		leftPane = m.renderGoalsView()
		rightPane = m.renderGoalSidePane()
	case ViewTasks:
		leftPane = m.renderTasksView()
		rightPane = m.renderTaskSidePane()
	case ViewChat:
		leftPane = m.renderChatView()
		rightPane = m.renderChatSidePane()
	case ViewAnalytics:
		leftPane = m.renderAnalyticsView()
		rightPane = m.renderInsightsPane()
	}
	rightPane += m.renderCommandPalette() + m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("coachd | view: %s | goal: %s | chat: %s", m.CurrentView, m.activeGoalTitle(), m.contextLabel(m.app.Chat().Bound())),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer:       fmt.Sprintf("keys: %s goals | %s tasks | %s chat | %s analytics | / cmd | %s help | %s quit", m.Keys.Goals, m.Keys.Tasks, m.Keys.Chat, m.Keys.Analytics, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewGoals, ViewTasks, ViewChat, ViewAnalytics:
		return true
	default:
		return false
	}
}

func (m *Model) initBubbleComponents() {
	m.goalList = list.New([]list.Item{}, list.NewDefaultDelegate(), 56, 14)
	m.goalList.Title = "Goals"
	m.goalList.SetShowHelp(false)
	m.goalList.SetFilteringEnabled(false)

	cols := []table.Column{
		{Title: "Goal", Width: 20},
		{Title: "Done", Width: 7},
		{Title: "Rate", Width: 5},
		{Title: "Streak", Width: 6},
		{Title: "Trend", Width: 6},
	}
	m.analyticsTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithHeight(8))

	m.titleInput = textinput.New()
	m.titleInput.Prompt = "title> "
	m.titleInput.CharLimit = 120
	m.titleInput.Width = 44

	m.descArea = textarea.New()
	m.descArea.SetWidth(54)
	m.descArea.SetHeight(4)
	m.descArea.ShowLineNumbers = false
	m.descArea.Placeholder = "What does done look like?"

	m.taskInput = textinput.New()
	m.taskInput.Prompt = "edit> "
	m.taskInput.CharLimit = 256
	m.taskInput.Width = 44

	m.chatInput = textinput.New()
	m.chatInput.Prompt = "you> "
	m.chatInput.Placeholder = "Ask your coach"
	m.chatInput.CharLimit = 1000
	m.chatInput.Width = 48

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.chatViewport = viewport.New(56, 18)
	m.goalProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))

	m.replySpinner = spinner.New()
	m.replySpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

func (m *Model) syncBubbleData() {
	goals := m.app.Goals().List()
	if m.Goals.Cursor >= len(goals) {
		m.Goals.Cursor = len(goals) - 1
	}
	if m.Goals.Cursor < 0 {
		m.Goals.Cursor = 0
	}
	summaries := m.app.Summaries()
	items := make([]list.Item, 0, len(summaries))
	for _, s := range summaries {
		title := s.Title
		if s.Active {
			title = "* " + title
		}
		items = append(items, listItem{title: title, description: fmt.Sprintf("%d/%d done | %d%%", s.TasksCompleted, s.TotalTasks, s.Progress)})
	}
	m.goalList.SetItems(items)
	if len(items) > 0 {
		m.goalList.Select(m.Goals.Cursor)
	}

	if m.Tasks.GoalID != "" {
		if _, err := m.app.Goals().Get(m.Tasks.GoalID); err != nil {
			m.Tasks = TasksState{}
		}
	}
	if n := len(m.currentTasks()); m.Tasks.Cursor >= n {
		m.Tasks.Cursor = n - 1
	}
	if m.Tasks.Cursor < 0 {
		m.Tasks.Cursor = 0
	}

	if m.CurrentView == ViewAnalytics && m.reportStale {
		m.refreshAnalytics()
	}
}

// waitForEventCmd blocks on the next event of ch. A closed channel ends the
// subscription.
func waitForEventCmd[T any](ch <-chan pubsub.Event[T], wrap func(pubsub.Event[T]) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(ev)
	}
}

func waitForChatEventCmd(ch <-chan pubsub.Event[chat.Event]) tea.Cmd {
	return waitForEventCmd(ch, func(ev pubsub.Event[chat.Event]) tea.Msg {
		return ChatEventMsg{Event: ev.Payload}
	})
}

func waitForGoalEventCmd(ch <-chan pubsub.Event[model.Goal]) tea.Cmd {
	return waitForEventCmd(ch, func(ev pubsub.Event[model.Goal]) tea.Msg {
		return GoalEventMsg{Type: ev.Type, Goal: ev.Payload}
	})
}

func waitForTaskEventCmd(ch <-chan pubsub.Event[model.Task]) tea.Cmd {
	return waitForEventCmd(ch, func(ev pubsub.Event[model.Task]) tea.Msg {
		return TaskEventMsg{Type: ev.Type, Task: ev.Payload}
	})
}

// onGoalEvent keeps the task scope and chat transcript in step with goal
// changes made anywhere in the app.
func (m *Model) onGoalEvent(msg GoalEventMsg) {
	m.reportStale = true
	switch msg.Type {
	case pubsub.DeletedEvent:
		if m.Tasks.GoalID == msg.Goal.ID {
			m.Tasks = TasksState{}
		}
		m.refreshChat()
	case pubsub.UpdatedEvent:
		if msg.Goal.Active && m.Tasks.GoalID == "" {
			m.Tasks.GoalID = msg.Goal.ID
		}
	}
}

func (m Model) activeGoalTitle() string {
	if g, ok := m.app.Goals().Active(); ok {
		return g.Title
	}
	return "none"
}

func (m Model) contextLabel(contextID string) string {
	if contextID == "" || contextID == model.MasterContext {
		return "Master Coach"
	}
	if g, err := m.app.Goals().Get(contextID); err == nil {
		return g.Title
	}
	return contextID
}

func (m Model) goalIndex(id string) int {
	for i, g := range m.app.Goals().List() {
		if g.ID == id {
			return i
		}
	}
	return 0
}
