package chat

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/sandeepkv93/coachd/internal/model"
)

const defaultOllamaModel = "llama3.2"

// OllamaProvider talks to a local Ollama server located via OLLAMA_HOST.
type OllamaProvider struct {
	model  string
	client *api.Client
}

func NewOllamaProvider(modelName string) (*OllamaProvider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Op: "config", Message: "failed to create client", Cause: err}
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultOllamaModel
	}
	return &OllamaProvider{model: modelName, client: client}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) GenerateReply(ctx context.Context, req Request) (Reply, error) {
	messages := []api.Message{{Role: "system", Content: systemPrompt(req.GoalTitle)}}
	for _, msg := range req.History {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, api.Message{Role: role, Content: msg.Text})
	}

	stream := false
	var out strings.Builder
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return Reply{}, newProviderError(p.Name(), "chat", "failed to chat", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return Reply{}, newProviderError(p.Name(), "chat", "empty chat response", nil)
	}
	return parseReply(out.String()), nil
}
