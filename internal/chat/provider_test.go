package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/coachd/internal/model"
)

func TestParseReplySplitsBullets(t *testing.T) {
	reply := parseReply("Generics are worth it.\n\n- Read the handbook chapter\n2. Write a generic Map\n")
	require.Equal(t, "Generics are worth it.", reply.Text)
	require.Equal(t, []string{"Read the handbook chapter", "Write a generic Map"}, reply.Suggestions)
}

func TestParseReplyOnlyBullets(t *testing.T) {
	reply := parseReply("- one\n- two")
	require.NotEmpty(t, reply.Text)
	require.Len(t, reply.Suggestions, 2)
}

func TestCannedProviderAcknowledge(t *testing.T) {
	p := NewCannedProvider()
	reply, err := p.GenerateReply(context.Background(), Request{History: []model.ChatMessage{
		{Role: model.RoleUser, Text: "okay"},
	}})
	require.NoError(t, err)
	require.Equal(t, cannedFollowUp, reply.Text)
	require.Empty(t, reply.Suggestions)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	require.False(t, perr.Retryable)
}

func TestProviderErrorRetryableByStatus(t *testing.T) {
	cases := []struct {
		name  string
		cause error
		want  bool
	}{
		{name: "network", cause: errors.New("connection reset"), want: true},
		{name: "no cause", cause: nil, want: true},
		{name: "openai unauthorized", cause: &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, want: false},
		{name: "openai bad request", cause: fmt.Errorf("create: %w", &openai.APIError{HTTPStatusCode: 400}), want: false},
		{name: "openai rate limited", cause: &openai.APIError{HTTPStatusCode: 429}, want: true},
		{name: "openai server error", cause: &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, want: true},
		{name: "ollama missing model", cause: api.StatusError{StatusCode: 404, ErrorMessage: "model not found"}, want: false},
		{name: "ollama server error", cause: api.StatusError{StatusCode: 500}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newProviderError("test", "chat", "failed", tc.cause)
			require.Equal(t, tc.want, err.Retryable)
		})
	}
}
