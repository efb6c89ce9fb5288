package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/coachd/internal/analytics"
	"github.com/sandeepkv93/coachd/internal/app"
	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
)

type View string

const (
	ViewGoals     View = "Goals"
	ViewTasks     View = "Tasks"
	ViewChat      View = "Chat"
	ViewAnalytics View = "Analytics"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Goals     string
	Tasks     string
	Chat      string
	Analytics string
	Help      string
	Quit      string
}

type GoalField int

const (
	GoalFieldTitle GoalField = iota
	GoalFieldDescription
)

type GoalFormState struct {
	Active bool
	Field  GoalField
	Err    string
}

type GoalsState struct {
	Cursor        int
	Form          GoalFormState
	ConfirmDelete bool
}

// TasksState scopes the task screen to one goal. EditID is the row whose
// text is being typed.
type TasksState struct {
	GoalID  string
	Cursor  int
	Editing bool
	EditID  string
}

type ChatState struct {
	Composing bool
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type listItem struct {
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type Model struct {
	CurrentView    View
	Goals          GoalsState
	Tasks          TasksState
	Chat           ChatState
	Palette        CommandPaletteState
	HelpVisible    bool
	Notifications  []Notification
	DesktopEnabled bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error

	app        *app.App
	notifier   DesktopNotifier
	chatEvents <-chan pubsub.Event[chat.Event]
	goalEvents <-chan pubsub.Event[model.Goal]
	taskEvents <-chan pubsub.Event[model.Task]
	report     analytics.Report
	// reportStale is set by store events and cleared when the report is rebuilt.
	reportStale bool

	goalList       list.Model
	analyticsTable table.Model
	titleInput     textinput.Model
	descArea       textarea.Model
	taskInput      textinput.Model
	chatInput      textinput.Model
	commandInput   textinput.Model
	chatViewport   viewport.Model
	goalProgress   progress.Model
	replySpinner   spinner.Model
	helpModel      help.Model
	spinnerActive  bool
	stateFilePath  string
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// ChatEventMsg carries a chat message appended or updated in any context.
type ChatEventMsg struct {
	Event chat.Event
}

type GoalEventMsg struct {
	Type pubsub.EventType
	Goal model.Goal
}

type TaskEventMsg struct {
	Type pubsub.EventType
	Task model.Task
}

func NewModel(a *app.App) Model {
	m := Model{
		CurrentView: ViewGoals,
		app:         a,
		notifier:    NoopDesktopNotifier{},
		Keys: GlobalKeyMap{
			Goals:     "1",
			Tasks:     "2",
			Chat:      "3",
			Analytics: "4",
			Help:      "?",
			Quit:      "q",
		},
	}
	m.initBubbleComponents()
	m.chatEvents = a.Chat().Subscribe(context.Background())
	m.goalEvents = a.Goals().Subscribe(context.Background())
	m.taskEvents = a.Tasks().Subscribe(context.Background())
	m.reportStale = true
	if active, ok := a.Goals().Active(); ok {
		m.Tasks.GoalID = active.ID
		m.Goals.Cursor = m.goalIndex(active.ID)
	}
	m.refreshChat()
	m.syncBubbleData()
	return m
}

func NewModelWithConfig(a *app.App, notifier DesktopNotifier, cfg RuntimeConfig) Model {
	m := NewModel(a)
	m.DesktopEnabled = cfg.DesktopNotifications
	m.stateFilePath = strings.TrimSpace(cfg.StateFile)
	if notifier != nil {
		m.notifier = notifier
	}
	if m.stateFilePath != "" {
		if state, err := loadSessionState(m.stateFilePath); err == nil {
			m.applySessionState(state)
		}
	}
	m.syncBubbleData()
	return m
}

func (m *Model) applySessionState(state sessionState) {
	if isKnownView(View(state.View)) {
		m.CurrentView = View(state.View)
	}
	if state.TasksGoalID != "" {
		if _, err := m.app.Goals().Get(state.TasksGoalID); err == nil {
			m.Tasks.GoalID = state.TasksGoalID
		}
	}
	if state.GoalCursor >= 0 && state.GoalCursor < len(m.app.Goals().List()) {
		m.Goals.Cursor = state.GoalCursor
	}
}
