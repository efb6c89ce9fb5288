package chat

import (
	"context"
	"strings"
)

const (
	cannedAnswer   = "Great question! Let me help you with that. Here are some specific steps you can take:"
	cannedFollowUp = "Excellent! Is there anything specific about this topic you'd like me to explain further?"
)

var cannedSuggestions = []string{
	"Research the topic for 20 minutes",
	"Try a hands-on example",
	"Write a summary of key learnings",
}

// CannedProvider answers with fixed text and never fails.
type CannedProvider struct{}

func NewCannedProvider() *CannedProvider {
	return &CannedProvider{}
}

func (p *CannedProvider) Name() string { return "canned" }

func (p *CannedProvider) GenerateReply(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	if strings.EqualFold(req.lastUserText(), AcknowledgeText) {
		return Reply{Text: cannedFollowUp}, nil
	}
	return Reply{
		Text:        cannedAnswer,
		Suggestions: append([]string(nil), cannedSuggestions...),
	}, nil
}
