package chat

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/coachd/internal/model"
)

// Pending is the future of one assistant reply. It resolves once the reply
// was generated and the minimum latency has elapsed.
type Pending struct {
	ID        string
	ContextID string
	PostedAt  time.Time

	mu        sync.Mutex
	generated *Reply
	released  bool
	claimed   bool
	resolved  bool
	reply     model.ChatMessage
	done      chan struct{}
}

func newPending(id, contextID string, postedAt time.Time) *Pending {
	return &Pending{
		ID:        id,
		ContextID: contextID,
		PostedAt:  postedAt,
		done:      make(chan struct{}),
	}
}

// Done is closed when the reply has been appended to the session.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the reply is appended or ctx ends.
func (p *Pending) Wait(ctx context.Context) (model.ChatMessage, error) {
	select {
	case <-p.done:
		msg, _ := p.Reply()
		return msg, nil
	case <-ctx.Done():
		return model.ChatMessage{}, ctx.Err()
	}
}

func (p *Pending) Reply() (model.ChatMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.resolved {
		return model.ChatMessage{}, false
	}
	return p.reply.Clone(), true
}

// markGenerated and markReleased return the reply once both halves are in,
// exactly once.
func (p *Pending) markGenerated(reply Reply) (Reply, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generated = &reply
	return p.readyLocked()
}

func (p *Pending) markReleased() (Reply, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	return p.readyLocked()
}

func (p *Pending) readyLocked() (Reply, bool) {
	if p.generated == nil || !p.released || p.claimed {
		return Reply{}, false
	}
	p.claimed = true
	return *p.generated, true
}

func (p *Pending) resolve(msg model.ChatMessage) {
	p.mu.Lock()
	p.reply = msg.Clone()
	p.resolved = true
	p.mu.Unlock()
	close(p.done)
}
