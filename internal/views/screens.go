package views

import (
	"fmt"
	"strings"
	"time"
)

type GoalsPanelData struct {
	ListView string
	Count    int
}

type GoalDetailData struct {
	Title        string
	Description  string
	Active       bool
	Completed    int
	Total        int
	Progress     int
	ProgressView string
	Streak       int
}

type GoalFormData struct {
	Active          bool
	TitleView       string
	DescriptionView string
	Field           int
	ErrorText       string
}

type TaskRowData struct {
	ID          string
	Text        string
	Completed   bool
	Placeholder bool
	Editing     bool
}

type TasksPanelData struct {
	GoalTitle string
	Rows      []TaskRowData
	Cursor    int
	EditView  string
}

type TaskSummaryData struct {
	GoalTitle      string
	Completed      int
	Total          int
	Progress       int
	ProgressView   string
	CompletedToday int
	Streak         int
}

type SuggestionItemData struct {
	Text    string
	Applied bool
}

type ChatMessageData struct {
	Role  string
	Text  string
	Items []SuggestionItemData
}

type ChatPanelData struct {
	ContextLabel   string
	TranscriptView string
}

type ChatSideData struct {
	State       string
	Awaiting    bool
	Waited      time.Duration
	SpinnerView string
	Composing   bool
	InputView   string
	Suggestions []SuggestionItemData
	CanAccept   bool
}

type DayData struct {
	Label     string
	Completed int
	Total     int
}

type AnalyticsPanelData struct {
	TableView      string
	Days           []DayData
	WeekCompleted  int
	WeekTotal      int
	CompletionRate int
	BestStreak     int
	RateView       string
}

type InsightData struct {
	Kind string
	Text string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderGoalsPanel(data GoalsPanelData) string {
	var b strings.Builder
	b.WriteString("goals:\n")
	b.WriteString("actions: [n]new [enter]activate [t]tasks [c]chat [d]delete\n")
	if data.Count == 0 {
		b.WriteString("(no goals yet: press n to create one)")
		return b.String()
	}
	b.WriteString(data.ListView)
	return strings.TrimSpace(b.String())
}

func RenderGoalDetail(data GoalDetailData) string {
	if strings.TrimSpace(data.Title) == "" {
		return "goal:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("goal:\n")
	b.WriteString(fmt.Sprintf("title: %s\n", data.Title))
	if data.Active {
		b.WriteString("status: ACTIVE\n")
	} else {
		b.WriteString("status: inactive\n")
	}
	if data.Description != "" {
		b.WriteString(fmt.Sprintf("about: %s\n", data.Description))
	}
	b.WriteString(fmt.Sprintf("tasks: %d/%d completed\n", data.Completed, data.Total))
	b.WriteString(fmt.Sprintf("progress: %s %d%%\n", data.ProgressView, data.Progress))
	b.WriteString(fmt.Sprintf("streak: %d day(s)", data.Streak))
	return b.String()
}

func RenderGoalForm(data GoalFormData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	b.WriteString("new-goal:\n")
	b.WriteString("keys: [tab] field [enter] save [esc] cancel\n")
	b.WriteString(fieldMarker(data.Field == 0) + data.TitleView + "\n")
	b.WriteString(fieldMarker(data.Field == 1) + "description:\n")
	b.WriteString(data.DescriptionView)
	if data.ErrorText != "" {
		b.WriteString("\nerror: " + data.ErrorText)
	}
	return b.String()
}

func RenderTasksPanel(data TasksPanelData) string {
	if strings.TrimSpace(data.GoalTitle) == "" {
		return "tasks:\n(no goal selected: activate one on the goals screen)"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tasks: %s\n", data.GoalTitle))
	b.WriteString("actions: [enter]edit [a]add [space]done [d]delete [tab]next goal\n")
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		switch {
		case row.Editing:
			b.WriteString(fmt.Sprintf("%s %s\n", cursor, data.EditView))
		case row.Placeholder:
			b.WriteString(fmt.Sprintf("%s [ ] (new task)\n", cursor))
		case row.Completed:
			b.WriteString(fmt.Sprintf("%s [x] %s\n", cursor, doneStyle.Render(row.Text)))
		default:
			b.WriteString(fmt.Sprintf("%s [ ] %s\n", cursor, row.Text))
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderTaskSummary(data TaskSummaryData) string {
	if strings.TrimSpace(data.GoalTitle) == "" {
		return "summary:\n(no goal selected)"
	}
	return fmt.Sprintf("summary:\ngoal: %s\ncompleted: %d/%d\nprogress: %s %d%%\ndone today: %d\nstreak: %d day(s)",
		data.GoalTitle,
		data.Completed,
		data.Total,
		data.ProgressView,
		data.Progress,
		data.CompletedToday,
		data.Streak,
	)
}

// RenderChatTranscript renders assistant text as markdown.
func RenderChatTranscript(messages []ChatMessageData) string {
	if len(messages) == 0 {
		return "(no messages yet)"
	}
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == "user" {
			b.WriteString(userStyle.Render("you: "+msg.Text) + "\n\n")
			continue
		}
		b.WriteString(coachStyle.Render("coach:") + "\n")
		b.WriteString(RenderMarkdown(msg.Text) + "\n")
		for i, item := range msg.Items {
			b.WriteString(suggestionLine(i, item) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderChatPanel(data ChatPanelData) string {
	return fmt.Sprintf("chat: %s\n%s", data.ContextLabel, data.TranscriptView)
}

func RenderChatSidePanel(data ChatSideData) string {
	var b strings.Builder
	b.WriteString("coach:\n")
	if data.Awaiting {
		b.WriteString(fmt.Sprintf("state: %s thinking (%s)\n", data.SpinnerView, data.Waited.Round(time.Second)))
	} else {
		b.WriteString(fmt.Sprintf("state: %s\n", data.State))
	}
	if data.Composing {
		b.WriteString(data.InputView + "\n")
		b.WriteString("keys: [enter] send [esc] stop typing\n")
	} else {
		b.WriteString("actions: [i]type [a]accept all [o]okay [m]master [tab]switch\n")
	}
	if len(data.Suggestions) > 0 {
		b.WriteString("\nsuggestions:\n")
		for i, item := range data.Suggestions {
			b.WriteString(suggestionLine(i, item) + "\n")
		}
		if data.CanAccept {
			b.WriteString("accept one with /accept <n>")
		} else {
			b.WriteString("switch to a goal to accept suggestions")
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderAnalyticsPanel(data AnalyticsPanelData) string {
	var b strings.Builder
	b.WriteString("analytics:\n")
	b.WriteString(data.TableView + "\n\n")
	b.WriteString("this week:\n")
	for _, d := range data.Days {
		b.WriteString(fmt.Sprintf("%s  %s %d/%d\n", d.Label, dayBar(d.Completed, d.Total), d.Completed, d.Total))
	}
	b.WriteString(fmt.Sprintf("\ncompleted: %d/%d\n", data.WeekCompleted, data.WeekTotal))
	b.WriteString(fmt.Sprintf("rate: %s %d%%\n", data.RateView, data.CompletionRate))
	b.WriteString(fmt.Sprintf("best streak: %d day(s)", data.BestStreak))
	return b.String()
}

func RenderInsightsPanel(insights []InsightData) string {
	if len(insights) == 0 {
		return "insights:\n(complete a few tasks to unlock insights)"
	}
	var b strings.Builder
	b.WriteString("insights:\n")
	for _, in := range insights {
		b.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(in.Kind), in.Text))
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("\n\ncommand: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func suggestionLine(i int, item SuggestionItemData) string {
	if item.Applied {
		return fmt.Sprintf("  %d. [added] %s", i+1, item.Text)
	}
	return fmt.Sprintf("  %d. %s", i+1, item.Text)
}

func fieldMarker(focused bool) string {
	if focused {
		return "> "
	}
	return "  "
}

func dayBar(completed, total int) string {
	const width = 10
	if total <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := completed * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
