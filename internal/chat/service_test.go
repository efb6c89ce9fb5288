package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/retry"
	"github.com/sandeepkv93/coachd/internal/store"
)

type fixture struct {
	svc   *Service
	goals *store.GoalStore
	tasks *store.TaskStore
}

func newFixture(t *testing.T, cfg Config, provider Provider) fixture {
	t.Helper()
	goals := store.NewGoalStore()
	tasks := store.NewTaskStore()
	svc := NewService(cfg, Deps{Provider: provider, Goals: goals, Tasks: tasks})
	t.Cleanup(svc.Close)
	return fixture{svc: svc, goals: goals, tasks: tasks}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ReplyLatency = 20 * time.Millisecond
	cfg.ReplyTimeout = time.Second
	cfg.Retry = retry.Config{MaxAttempts: 1}
	return cfg
}

func waitReply(t *testing.T, p *Pending) model.ChatMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := p.Wait(ctx)
	require.NoError(t, err)
	return msg
}

func lastMessage(t *testing.T, history []model.ChatMessage) model.ChatMessage {
	t.Helper()
	require.NotEmpty(t, history)
	return history[len(history)-1]
}

type blockingProvider struct {
	release chan struct{}
	calls   atomic.Int32
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) GenerateReply(ctx context.Context, req Request) (Reply, error) {
	p.calls.Add(1)
	select {
	case <-p.release:
		return Reply{Text: "reply for " + req.ContextID}, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) GenerateReply(context.Context, Request) (Reply, error) {
	return Reply{}, newProviderError("failing", "chat", "boom", errors.New("network down"))
}

func TestPostRejectsEmptyText(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	_, err := f.svc.Post("   ")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestPostWhileAwaitingConflicts(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	require.Equal(t, StateAwaitingResponse, f.svc.State(model.MasterContext))

	_, err = f.svc.Post("again")
	require.ErrorIs(t, err, model.ErrConflict)

	reply := waitReply(t, pending)
	require.Equal(t, model.RoleAssistant, reply.Role)
	require.Equal(t, StateIdle, f.svc.State(model.MasterContext))

	next, err := f.svc.Post("again")
	require.NoError(t, err)
	waitReply(t, next)
}

func TestReplyHonorsMinimumLatency(t *testing.T) {
	cfg := fastConfig()
	cfg.ReplyLatency = 80 * time.Millisecond
	f := newFixture(t, cfg, nil)

	started := time.Now()
	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	require.GreaterOrEqual(t, time.Since(started), 80*time.Millisecond)
	require.Equal(t, cannedAnswer, reply.Text)
	require.NotNil(t, reply.Action)
	require.Equal(t, cannedSuggestions, reply.Action.Items)
}

func TestHistoryStartsWithGreetingAndIsOrdered(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	goal, err := f.goals.Create("Learn TypeScript", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Bind(goal.ID))

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	waitReply(t, pending)

	history := f.svc.History(goal.ID)
	require.Len(t, history, 3)
	require.Contains(t, history[0].Text, "Learn TypeScript")
	for i := 1; i < len(history); i++ {
		require.Greater(t, history[i].Seq, history[i-1].Seq)
		require.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt))
	}
}

func TestPendingReplyLandsInItsOwnContext(t *testing.T) {
	provider := &blockingProvider{release: make(chan struct{})}
	f := newFixture(t, fastConfig(), provider)
	a, err := f.goals.Create("A", "")
	require.NoError(t, err)
	b, err := f.goals.Create("B", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Bind(b.ID))
	pendingB, err := f.svc.Post("question for b")
	require.NoError(t, err)

	require.NoError(t, f.svc.Bind(a.ID))
	pendingA, err := f.svc.Post("help")
	require.NoError(t, err)
	historyA := f.svc.History(a.ID)

	close(provider.release)
	replyB := waitReply(t, pendingB)
	require.Equal(t, b.ID, replyB.ContextID)
	require.Equal(t, replyB.ID, lastMessage(t, f.svc.History(b.ID)).ID)

	replyA := waitReply(t, pendingA)
	afterA := f.svc.History(a.ID)
	require.Len(t, afterA, len(historyA)+1)
	require.Equal(t, replyA.ID, lastMessage(t, afterA).ID)
	for _, msg := range afterA {
		require.NotEqual(t, replyB.ID, msg.ID)
	}
	require.Equal(t, a.ID, f.svc.Bound())
}

func TestBindUnknownGoal(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	require.ErrorIs(t, f.svc.Bind("missing"), model.ErrNotFound)
	require.Equal(t, model.MasterContext, f.svc.Bound())
}

func TestApplyActionIsIdempotent(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	goal, err := f.goals.Create("Learn X", "")
	require.NoError(t, err)
	_, err = f.tasks.EnsurePlaceholder(goal.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Bind(goal.ID))

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	result, err := f.svc.ApplyAction(goal.ID, reply.ID, Selection{Kind: AcceptAll})
	require.NoError(t, err)
	require.Len(t, result.Added, len(cannedSuggestions))
	require.NotNil(t, result.Confirmation)
	require.Contains(t, result.Confirmation.Text, `3 tasks to your "Learn X" goal`)
	once := f.tasks.List(goal.ID)

	_, err = f.svc.ApplyAction(goal.ID, reply.ID, Selection{Kind: AcceptAll})
	require.ErrorIs(t, err, model.ErrValidation)
	require.Equal(t, once, f.tasks.List(goal.ID))

	history := f.svc.History(goal.ID)
	for _, msg := range history {
		if msg.ID == reply.ID {
			require.False(t, msg.HasPendingItems())
		}
	}
}

func TestApplySingleItemThenRest(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	goal, err := f.goals.Create("Learn X", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Bind(goal.ID))

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	result, err := f.svc.ApplyAction(goal.ID, reply.ID, Selection{Kind: AcceptItem, Index: 1})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	require.Equal(t, cannedSuggestions[1], result.Added[0].Text)

	_, err = f.svc.ApplyAction(goal.ID, reply.ID, Selection{Kind: AcceptItem, Index: 1})
	require.ErrorIs(t, err, model.ErrValidation)

	result, err = f.svc.ApplyAction(goal.ID, reply.ID, Selection{Kind: AcceptAll})
	require.NoError(t, err)
	require.Len(t, result.Added, 2)
	require.Len(t, f.tasks.List(goal.ID), 4)
}

func TestApplyActionInMasterContextFails(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	_, err = f.svc.ApplyAction(model.MasterContext, reply.ID, Selection{Kind: AcceptAll})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestAcknowledgePostsOkay(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	result, err := f.svc.ApplyAction(model.MasterContext, reply.ID, Selection{Kind: Acknowledge})
	require.NoError(t, err)
	require.NotNil(t, result.Pending)
	followUp := waitReply(t, result.Pending)
	require.Equal(t, cannedFollowUp, followUp.Text)

	history := f.svc.History(model.MasterContext)
	require.Equal(t, AcknowledgeText, history[len(history)-2].Text)
	require.Equal(t, model.RoleUser, history[len(history)-2].Role)

	_, err = f.svc.ApplyAction(model.MasterContext, "missing", Selection{Kind: Acknowledge})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestProviderFailureFallsBack(t *testing.T) {
	f := newFixture(t, fastConfig(), failingProvider{})
	pending, err := f.svc.Post("help")
	require.NoError(t, err)

	reply := waitReply(t, pending)
	require.Equal(t, FallbackReply, reply.Text)
	require.Nil(t, reply.Action)
	require.Equal(t, StateIdle, f.svc.State(model.MasterContext))
}

type rejectingProvider struct {
	calls atomic.Int32
}

func (*rejectingProvider) Name() string { return "rejecting" }

func (p *rejectingProvider) GenerateReply(context.Context, Request) (Reply, error) {
	p.calls.Add(1)
	return Reply{}, newProviderError("rejecting", "chat", "unauthorized", &openai.APIError{HTTPStatusCode: 401})
}

func TestClientErrorIsNotRetried(t *testing.T) {
	cfg := fastConfig()
	cfg.Retry = retry.Config{MaxAttempts: 3, Delay: time.Millisecond}
	provider := &rejectingProvider{}
	f := newFixture(t, cfg, provider)

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)
	require.Equal(t, FallbackReply, reply.Text)
	require.Equal(t, int32(1), provider.calls.Load())
}

func TestProviderTimeoutFallsBack(t *testing.T) {
	cfg := fastConfig()
	cfg.ReplyTimeout = 30 * time.Millisecond
	provider := &blockingProvider{release: make(chan struct{})}
	f := newFixture(t, cfg, provider)

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)
	require.Equal(t, FallbackReply, reply.Text)
}

func TestCloseFlushesPendingReplies(t *testing.T) {
	cfg := fastConfig()
	cfg.ReplyLatency = time.Hour
	goals := store.NewGoalStore()
	svc := NewService(cfg, Deps{Goals: goals, Tasks: store.NewTaskStore()})

	pending, err := svc.Post("help")
	require.NoError(t, err)
	svc.Close()

	select {
	case <-pending.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pending reply was not flushed on close")
	}
	_, err = svc.Post("after close")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDropDiscardsLateReply(t *testing.T) {
	provider := &blockingProvider{release: make(chan struct{})}
	f := newFixture(t, fastConfig(), provider)
	goal, err := f.goals.Create("A", "")
	require.NoError(t, err)

	pending, err := f.svc.PostTo(goal.ID, "help")
	require.NoError(t, err)
	f.svc.Drop(goal.ID)
	close(provider.release)

	waitReply(t, pending)
	require.Empty(t, f.svc.History(goal.ID))
}

func TestDropSkipsRemainingLatency(t *testing.T) {
	cfg := fastConfig()
	cfg.ReplyLatency = time.Hour
	f := newFixture(t, cfg, nil)
	goal, err := f.goals.Create("A", "")
	require.NoError(t, err)

	pending, err := f.svc.PostTo(goal.ID, "help")
	require.NoError(t, err)
	_, inflight := f.svc.PendingFor(goal.ID)
	require.True(t, inflight)

	f.svc.Drop(goal.ID)
	waitReply(t, pending)
	_, inflight = f.svc.PendingFor(goal.ID)
	require.False(t, inflight)
	require.Empty(t, f.svc.History(goal.ID))
	require.Equal(t, 0, f.svc.engine.Pending())
}

func TestRestoreOrdersBySeq(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	err := f.svc.Restore([]model.ChatMessage{
		{ID: "m2", ContextID: "g1", Seq: 2, Role: model.RoleUser, Text: "second", CreatedAt: now},
		{ID: "m1", ContextID: "g1", Seq: 1, Role: model.RoleAssistant, Text: "first", CreatedAt: now},
	})
	require.NoError(t, err)

	history := f.svc.History("g1")
	require.Len(t, history, 2)
	require.Equal(t, "m1", history[0].ID)
	require.Equal(t, StateIdle, f.svc.State("g1"))
}

func TestSubscribeReceivesAppendedMessages(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := f.svc.Subscribe(ctx)

	pending, err := f.svc.Post("help")
	require.NoError(t, err)
	reply := waitReply(t, pending)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Payload.Message.ID == reply.ID {
				require.Equal(t, StateIdle, ev.Payload.State)
				return
			}
		case <-deadline:
			t.Fatal("reply event not published")
		}
	}
}

func TestBindPublishesGreetingOnce(t *testing.T) {
	f := newFixture(t, fastConfig(), nil)
	goal, err := f.goals.Create("Learn Go", "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := f.svc.Subscribe(ctx)

	require.NoError(t, f.svc.Bind(goal.ID))
	require.NoError(t, f.svc.Bind(goal.ID))
	require.Equal(t, goal.ID, f.svc.Bound())

	select {
	case ev := <-events:
		require.Equal(t, goal.ID, ev.Payload.ContextID)
		require.Equal(t, model.RoleAssistant, ev.Payload.Message.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("greeting event not published")
	}
	require.Len(t, f.svc.History(goal.ID), 1)
	select {
	case ev := <-events:
		t.Fatalf("unexpected second event: %+v", ev.Payload)
	default:
	}
}
