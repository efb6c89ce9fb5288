package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandeepkv93/coachd/internal/model"
)

// Request is everything a provider sees for one reply.
type Request struct {
	ContextID string
	GoalTitle string
	History   []model.ChatMessage
}

// Reply is a generated assistant turn. Suggestions become an add-tasks
// action on the appended message.
type Reply struct {
	Text        string
	Suggestions []string
}

type Provider interface {
	Name() string
	GenerateReply(ctx context.Context, req Request) (Reply, error)
}

func (r Request) lastUserText() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == model.RoleUser {
			return strings.TrimSpace(r.History[i].Text)
		}
	}
	return ""
}

func systemPrompt(goalTitle string) string {
	var b strings.Builder
	b.WriteString("You are a concise, encouraging goal coach. ")
	if goalTitle != "" {
		fmt.Fprintf(&b, "The user is working on the goal %q. ", goalTitle)
	} else {
		b.WriteString("You are the master coach across all of the user's goals. ")
	}
	b.WriteString("Answer in a short paragraph. When concrete next steps help, ")
	b.WriteString("list at most five of them afterwards, one per line, each starting with \"- \".")
	return b.String()
}

// parseReply splits model output into prose and bulleted suggestions.
func parseReply(raw string) Reply {
	var prose []string
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if item, ok := bulletItem(trimmed); ok {
			items = append(items, item)
			continue
		}
		if trimmed != "" || len(prose) > 0 {
			prose = append(prose, line)
		}
	}
	text := strings.TrimSpace(strings.Join(prose, "\n"))
	if text == "" && len(items) > 0 {
		text = "Here are some steps you can take:"
	}
	return Reply{Text: text, Suggestions: items}
}

func bulletItem(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			item := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			return item, item != ""
		}
	}
	// numbered lists such as "1. step" or "2) step"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		item := strings.TrimSpace(line[i+2:])
		return item, item != ""
	}
	return "", false
}
