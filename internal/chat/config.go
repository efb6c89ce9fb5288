package chat

import (
	"time"

	"github.com/sandeepkv93/coachd/internal/retry"
)

const (
	// FallbackReply replaces a reply that failed or timed out.
	FallbackReply = "I'm unable to respond right now. Please try again in a moment."
	// AcknowledgeText is posted when the user acknowledges a suggestion.
	AcknowledgeText = "Okay"

	releaseKind = "reply_release"
)

type Config struct {
	// ReplyLatency is the minimum simulated thinking time per reply.
	ReplyLatency    time.Duration
	ReplyTimeout    time.Duration
	Retry           retry.Config
	SchedulerBuffer int
}

func DefaultConfig() Config {
	return Config{
		ReplyLatency:    1500 * time.Millisecond,
		ReplyTimeout:    30 * time.Second,
		Retry:           retry.DefaultConfig(),
		SchedulerBuffer: 64,
	}
}
