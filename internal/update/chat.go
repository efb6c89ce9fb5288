package update

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/coachd/internal/chat"
	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/views"
)

func (m Model) handleChatKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "i", "enter":
		m.Chat.Composing = true
		m.chatInput.Focus()
		return m, nil
	case "a":
		return m.acceptSuggestions(chat.Selection{Kind: chat.AcceptAll})
	case "o":
		return m.acknowledge()
	case "m":
		if err := m.app.OpenMasterChat(); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m, nil
		}
		m.refreshChat()
		m.Status = StatusBar{Text: "chatting with Master Coach"}
		return m, nil
	case "tab":
		m.cycleChatContext()
		return m, nil
	}
	var cmd tea.Cmd
	m.chatViewport, cmd = m.chatViewport.Update(msg)
	return m, cmd
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Chat.Composing = false
		m.chatInput.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.chatInput.Value())
		if text == "" {
			return m, nil
		}
		return m.send(text)
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m Model) send(text string) (Model, tea.Cmd) {
	pending, err := m.app.Send(text)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			m.Status = StatusBar{Text: "coach is still thinking", IsError: true}
		} else {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
		}
		return m, nil
	}
	m.chatInput.SetValue("")
	m.refreshChat()
	return m, m.watchReply(pending)
}

func (m Model) acceptSuggestions(sel chat.Selection) (Model, tea.Cmd) {
	contextID := m.app.Chat().Bound()
	msg, ok := m.latestActionable(contextID)
	if !ok {
		m.Status = StatusBar{Text: "no suggestions to accept", IsError: true}
		return m, nil
	}
	res, err := m.app.ApplyAction(contextID, msg.ID, sel)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.refreshChat()
	m.Status = StatusBar{Text: fmt.Sprintf("added %d task(s) to %s", len(res.Added), m.contextLabel(contextID))}
	return m, nil
}

func (m Model) acknowledge() (Model, tea.Cmd) {
	contextID := m.app.Chat().Bound()
	msg, ok := m.latestAssistant(contextID)
	if !ok {
		m.Status = StatusBar{Text: "nothing to acknowledge", IsError: true}
		return m, nil
	}
	res, err := m.app.ApplyAction(contextID, msg.ID, chat.Selection{Kind: chat.Acknowledge})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.refreshChat()
	return m, m.watchReply(res.Pending)
}

// watchReply starts the spinner for an in-flight reply.
func (m *Model) watchReply(p *chat.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	m.Status = StatusBar{Text: "coach is thinking..."}
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	return m.replySpinner.Tick
}

func (m *Model) cycleChatContext() {
	contexts := []string{model.MasterContext}
	for _, g := range m.app.Goals().List() {
		contexts = append(contexts, g.ID)
	}
	current := m.app.Chat().Bound()
	next := contexts[0]
	for i, c := range contexts {
		if c == current {
			next = contexts[(i+1)%len(contexts)]
			break
		}
	}
	if next == model.MasterContext {
		if err := m.app.OpenMasterChat(); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return
		}
	} else if !m.activateGoal(next) {
		return
	}
	m.refreshChat()
	m.Status = StatusBar{Text: fmt.Sprintf("chatting in: %s", m.contextLabel(next))}
}

func (m *Model) onChatEvent(ev chat.Event) {
	bound := m.app.Chat().Bound()
	if ev.ContextID == bound {
		m.refreshChat()
	}
	if ev.Message.Role != model.RoleAssistant || ev.State != chat.StateIdle {
		return
	}
	if m.CurrentView == ViewChat && ev.ContextID == bound {
		if m.Status.Text == "coach is thinking..." {
			m.Status = StatusBar{Text: "coach replied"}
		}
		return
	}
	if len(m.app.Chat().History(ev.ContextID)) > 1 {
		m.notify("Coach replied", fmt.Sprintf("%s: %s", m.contextLabel(ev.ContextID), firstLine(ev.Message.Text)), "info")
	}
}

func (m Model) awaitingReply() bool {
	_, ok := m.app.Chat().PendingFor(m.app.Chat().Bound())
	return ok
}

// waited is how long the bound context has been waiting for its reply.
func (m Model) waited() time.Duration {
	p, ok := m.app.Chat().PendingFor(m.app.Chat().Bound())
	if !ok {
		return 0
	}
	return max(time.Since(p.PostedAt), 0)
}

func (m Model) latestActionable(contextID string) (model.ChatMessage, bool) {
	history := m.app.Chat().History(contextID)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].HasPendingItems() {
			return history[i], true
		}
	}
	return model.ChatMessage{}, false
}

func (m Model) latestAssistant(contextID string) (model.ChatMessage, bool) {
	history := m.app.Chat().History(contextID)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			return history[i], true
		}
	}
	return model.ChatMessage{}, false
}

// refreshChat re-renders the bound transcript into the viewport. Markdown
// rendering is done here rather than in View.
func (m *Model) refreshChat() {
	history := m.app.Chat().History(m.app.Chat().Bound())
	messages := make([]views.ChatMessageData, 0, len(history))
	for _, msg := range history {
		messages = append(messages, views.ChatMessageData{
			Role:  string(msg.Role),
			Text:  msg.Text,
			Items: suggestionItems(msg),
		})
	}
	m.chatViewport.SetContent(views.RenderChatTranscript(messages))
	m.chatViewport.GotoBottom()
}

func suggestionItems(msg model.ChatMessage) []views.SuggestionItemData {
	if msg.Action == nil {
		return nil
	}
	items := make([]views.SuggestionItemData, 0, len(msg.Action.Items))
	for i, text := range msg.Action.Items {
		items = append(items, views.SuggestionItemData{
			Text:    text,
			Applied: i < len(msg.Applied) && msg.Applied[i],
		})
	}
	return items
}

func (m Model) renderChatView() string {
	return views.RenderChatPanel(views.ChatPanelData{
		ContextLabel:   m.contextLabel(m.app.Chat().Bound()),
		TranscriptView: m.chatViewport.View(),
	})
}

func (m Model) renderChatSidePane() string {
	contextID := m.app.Chat().Bound()
	var suggestions []views.SuggestionItemData
	if msg, ok := m.latestActionable(contextID); ok {
		suggestions = suggestionItems(msg)
	}
	return views.RenderChatSidePanel(views.ChatSideData{
		State:       m.app.Chat().State(contextID).String(),
		Awaiting:    m.awaitingReply(),
		Waited:      m.waited(),
		SpinnerView: m.replySpinner.View(),
		Composing:   m.Chat.Composing,
		InputView:   m.chatInput.View(),
		Suggestions: suggestions,
		CanAccept:   contextID != model.MasterContext,
	})
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if r := []rune(line); len(r) > 80 {
		return string(r[:77]) + "..."
	}
	return line
}
