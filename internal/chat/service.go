package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sandeepkv93/coachd/internal/model"
	"github.com/sandeepkv93/coachd/internal/pubsub"
	"github.com/sandeepkv93/coachd/internal/retry"
	"github.com/sandeepkv93/coachd/internal/scheduler"
)

var ErrClosed = errors.New("chat: service closed")

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return "idle"
	}
}

// GoalDirectory resolves goal contexts.
type GoalDirectory interface {
	Get(id string) (model.Goal, error)
}

// TaskAdder receives accepted suggestions.
type TaskAdder interface {
	AddTasks(goalID string, texts []string) ([]model.Task, error)
}

// MessageRecorder persists appended and updated messages.
type MessageRecorder interface {
	SaveMessage(ctx context.Context, msg model.ChatMessage) error
}

type Deps struct {
	Provider Provider
	Goals    GoalDirectory
	Tasks    TaskAdder
	Recorder MessageRecorder
	Logger   *log.Logger
	Now      func() time.Time
	NewID    func() string
}

// Event is published whenever a message is appended or updated.
type Event struct {
	ContextID string
	Message   model.ChatMessage
	State     State
}

type SelectionKind int

const (
	AcceptAll SelectionKind = iota
	AcceptItem
	Acknowledge
)

type Selection struct {
	Kind  SelectionKind
	Index int
}

type ApplyResult struct {
	Added        []model.Task
	Confirmation *model.ChatMessage
	Pending      *Pending
}

type session struct {
	contextID string
	messages  []model.ChatMessage
	seq       int64
	state     State
	pending   *Pending
}

// Service holds one independent session per context. A context is either a
// goal id or model.MasterContext.
type Service struct {
	cfg      Config
	provider Provider
	goals    GoalDirectory
	tasks    TaskAdder
	recorder MessageRecorder
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	sessions map[string]*session
	waiting  map[string]*Pending
	bound    string
	closed   bool

	engine       *scheduler.Engine
	broker       *pubsub.Broker[Event]
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	startOnce    sync.Once
	closeOnce    sync.Once
	started      bool
	dispatchDone chan struct{}
}

func NewService(cfg Config, deps Deps) *Service {
	if deps.Provider == nil {
		deps.Provider = NewCannedProvider()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultConfig().ReplyTimeout
	}
	if cfg.ReplyLatency < 0 {
		cfg.ReplyLatency = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:          cfg,
		provider:     deps.Provider,
		goals:        deps.Goals,
		tasks:        deps.Tasks,
		recorder:     deps.Recorder,
		logger:       deps.Logger,
		now:          deps.Now,
		newID:        deps.NewID,
		sessions:     make(map[string]*session),
		waiting:      make(map[string]*Pending),
		bound:        model.MasterContext,
		engine:       scheduler.NewEngine(cfg.SchedulerBuffer),
		broker:       pubsub.NewBroker[Event](),
		ctx:          ctx,
		cancel:       cancel,
		dispatchDone: make(chan struct{}),
	}
}

// Start runs the release dispatcher. Posting starts it on demand.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()

		s.engine.Start()
		go func() {
			defer close(s.dispatchDone)
			for ev := range s.engine.C() {
				s.release(ev.ID)
			}
		}()
	})
}

// Close cancels in-flight generation, flushes every pending reply as its
// fallback and stops the dispatcher.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		s.cancel()
		queued := s.engine.Pending()
		s.engine.Stop()
		if started {
			<-s.dispatchDone
		}
		s.logger.Debug("reply scheduler stopped", "queued", queued, "dropped", s.engine.Dropped())

		s.mu.Lock()
		waiting := make([]*Pending, 0, len(s.waiting))
		for _, p := range s.waiting {
			waiting = append(waiting, p)
		}
		s.mu.Unlock()
		for _, p := range waiting {
			s.release(p.ID)
		}

		s.wg.Wait()
		s.broker.Shutdown()
	})
}

// Bind makes contextID the current context. An empty id binds the master
// context. Histories are never touched, a new session only gets its greeting.
func (s *Service) Bind(contextID string) error {
	if contextID == "" {
		contextID = model.MasterContext
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, greeting, err := s.openSessionLocked(contextID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.bound = contextID
	s.mu.Unlock()

	s.logger.Debug("chat context bound", "context", contextID)
	s.afterAppend(greeting...)
	return nil
}

func (s *Service) Bound() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Post sends text to the bound context.
func (s *Service) Post(text string) (*Pending, error) {
	return s.PostTo(s.Bound(), text)
}

// PostTo appends a user message to contextID and schedules the reply. Only
// one reply may be in flight per context.
func (s *Service) PostTo(contextID, text string) (*Pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is required", model.ErrValidation)
	}
	if contextID == "" {
		contextID = model.MasterContext
	}
	s.Start()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	sess, greeting, err := s.openSessionLocked(contextID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.state == StateAwaitingResponse {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: a reply is already pending in %q", model.ErrConflict, contextID)
	}

	now := s.now()
	userMsg := s.appendLocked(sess, model.ChatMessage{
		ID:        s.newID(),
		ContextID: contextID,
		Role:      model.RoleUser,
		Text:      text,
		CreatedAt: now,
	})
	pending := newPending(s.newID(), contextID, userMsg.CreatedAt)
	sess.state = StateAwaitingResponse
	sess.pending = pending
	s.waiting[pending.ID] = pending

	req := Request{ContextID: contextID, History: cloneMessages(sess.messages)}
	if contextID != model.MasterContext && s.goals != nil {
		if goal, err := s.goals.Get(contextID); err == nil {
			req.GoalTitle = goal.Title
		}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.afterAppend(append(greeting, userMsg)...)

	releaseAt := time.Now().UTC().Add(s.cfg.ReplyLatency)
	if err := s.engine.Schedule(scheduler.Event{ID: pending.ID, Key: contextID, Kind: releaseKind, DueAt: releaseAt}); err != nil {
		s.logger.Warn("reply release not scheduled", "context", contextID, "err", err)
		s.release(pending.ID)
	}
	go s.generate(pending, req)
	return pending, nil
}

// ApplyAction applies a selection to an assistant message of contextID.
// Accepted items are added once: re-accepting applied items fails with
// model.ErrValidation and adds nothing.
func (s *Service) ApplyAction(contextID, messageID string, sel Selection) (ApplyResult, error) {
	if contextID == "" {
		contextID = model.MasterContext
	}
	if sel.Kind == Acknowledge {
		if _, err := s.message(contextID, messageID); err != nil {
			return ApplyResult{}, err
		}
		pending, err := s.PostTo(contextID, AcknowledgeText)
		if err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Pending: pending}, nil
	}

	if contextID == model.MasterContext {
		return ApplyResult{}, fmt.Errorf("%w: no goal is bound to the master context", model.ErrValidation)
	}
	if s.tasks == nil || s.goals == nil {
		return ApplyResult{}, fmt.Errorf("%w: task store is not configured", model.ErrValidation)
	}
	goal, err := s.goals.Get(contextID)
	if err != nil {
		return ApplyResult{}, err
	}

	s.mu.Lock()
	sess, idx, err := s.locateLocked(contextID, messageID)
	if err != nil {
		s.mu.Unlock()
		return ApplyResult{}, err
	}
	msg := &sess.messages[idx]
	if msg.Action == nil || msg.Action.Type != model.ActionAddTasks {
		s.mu.Unlock()
		return ApplyResult{}, fmt.Errorf("%w: message %q carries no task suggestions", model.ErrValidation, messageID)
	}
	if len(msg.Applied) < len(msg.Action.Items) {
		applied := make([]bool, len(msg.Action.Items))
		copy(applied, msg.Applied)
		msg.Applied = applied
	}
	picked, err := pickItems(*msg, sel)
	if err != nil {
		s.mu.Unlock()
		return ApplyResult{}, err
	}
	texts := make([]string, 0, len(picked))
	for _, i := range picked {
		msg.Applied[i] = true
		texts = append(texts, msg.Action.Items[i])
	}
	s.mu.Unlock()

	added, err := s.tasks.AddTasks(goal.ID, texts)
	if err != nil {
		s.mu.Lock()
		if sess, idx, lerr := s.locateLocked(contextID, messageID); lerr == nil {
			for _, i := range picked {
				sess.messages[idx].Applied[i] = false
			}
		}
		s.mu.Unlock()
		return ApplyResult{}, err
	}

	s.mu.Lock()
	sess, idx, err = s.locateLocked(contextID, messageID)
	if err != nil {
		s.mu.Unlock()
		return ApplyResult{Added: added}, nil
	}
	updated := sess.messages[idx].Clone()
	confirmation := s.appendLocked(sess, model.ChatMessage{
		ID:        s.newID(),
		ContextID: contextID,
		Role:      model.RoleAssistant,
		Text:      confirmationText(len(added), goal.Title),
		CreatedAt: s.now(),
	})
	state := sess.state
	s.mu.Unlock()

	s.record(updated)
	s.broker.Publish(pubsub.UpdatedEvent, Event{ContextID: contextID, Message: updated, State: state})
	s.afterAppend(confirmation)
	s.logger.Info("suggestions accepted", "context", contextID, "message_id", messageID, "added", len(added))
	return ApplyResult{Added: added, Confirmation: &confirmation}, nil
}

// History returns a copy of the context's messages in sequence order.
func (s *Service) History(contextID string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[contextID]
	if !ok {
		return nil
	}
	return cloneMessages(sess.messages)
}

func (s *Service) State(contextID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[contextID]; ok {
		return sess.state
	}
	return StateIdle
}

// PendingFor returns the in-flight reply of contextID, if any.
func (s *Service) PendingFor(contextID string) (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[contextID]; ok && sess.pending != nil {
		return sess.pending, true
	}
	return nil, false
}

// Drop forgets a context, e.g. after its goal was deleted. A reply still in
// flight for it skips its remaining latency and is discarded on arrival.
func (s *Service) Drop(contextID string) {
	s.mu.Lock()
	var inflight *Pending
	if sess, ok := s.sessions[contextID]; ok {
		inflight = sess.pending
	}
	delete(s.sessions, contextID)
	if s.bound == contextID {
		s.bound = model.MasterContext
	}
	s.mu.Unlock()

	if inflight != nil && s.engine.Cancel(inflight.ID) {
		s.release(inflight.ID)
	}
}

// Restore loads persisted messages. Each context is ordered by Seq and starts
// idle.
func (s *Service) Restore(messages []model.ChatMessage) error {
	grouped := make(map[string][]model.ChatMessage)
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			return err
		}
		grouped[msg.ContextID] = append(grouped[msg.ContextID], msg.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for contextID, msgs := range grouped {
		sortBySeq(msgs)
		sess := &session{contextID: contextID, messages: msgs, state: StateIdle}
		if n := len(msgs); n > 0 {
			sess.seq = msgs[n-1].Seq
		}
		s.sessions[contextID] = sess
	}
	return nil
}

func (s *Service) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return s.broker.Subscribe(ctx)
}

func (s *Service) generate(p *Pending, req Request) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ReplyTimeout)
	defer cancel()

	started := time.Now()
	reply, err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) (Reply, error) {
		out, err := s.provider.GenerateReply(ctx, req)
		var perr *ProviderError
		if errors.As(err, &perr) && !perr.Retryable {
			return out, retry.Permanent(err)
		}
		return out, err
	})
	if err != nil {
		s.logger.Warn("reply generation failed",
			"provider", s.provider.Name(),
			"context", p.ContextID,
			"elapsed", time.Since(started),
			"err", err,
		)
		reply = Reply{Text: FallbackReply}
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = FallbackReply
		reply.Suggestions = nil
	}

	if ready, ok := p.markGenerated(reply); ok {
		s.finish(p, ready)
	}
}

func (s *Service) release(pendingID string) {
	s.mu.Lock()
	p, ok := s.waiting[pendingID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if ready, ok := p.markReleased(); ok {
		s.finish(p, ready)
	}
}

func (s *Service) finish(p *Pending, reply Reply) {
	msg := model.ChatMessage{
		ID:        s.newID(),
		ContextID: p.ContextID,
		Role:      model.RoleAssistant,
		Text:      reply.Text,
		CreatedAt: s.now(),
	}
	if items := cleanItems(reply.Suggestions); len(items) > 0 {
		msg.Action = &model.Action{Type: model.ActionAddTasks, Items: items}
		msg.Applied = make([]bool, len(items))
	}

	s.mu.Lock()
	delete(s.waiting, p.ID)
	sess, ok := s.sessions[p.ContextID]
	delivered := ok && sess.pending == p
	if delivered {
		msg = s.appendLocked(sess, msg)
		sess.state = StateIdle
		sess.pending = nil
	}
	s.mu.Unlock()

	if delivered {
		s.afterAppend(msg)
	} else {
		s.logger.Debug("reply discarded for dropped context", "context", p.ContextID)
	}
	p.resolve(msg)
}

// openSessionLocked returns the session of contextID, creating it with its
// greeting when missing.
func (s *Service) openSessionLocked(contextID string) (*session, []model.ChatMessage, error) {
	if sess, ok := s.sessions[contextID]; ok {
		return sess, nil, nil
	}
	greeting := masterGreeting
	if contextID != model.MasterContext {
		if s.goals == nil {
			return nil, nil, fmt.Errorf("%w: goal %q", model.ErrNotFound, contextID)
		}
		goal, err := s.goals.Get(contextID)
		if err != nil {
			return nil, nil, err
		}
		greeting = goalGreeting(goal.Title)
	}

	sess := &session{contextID: contextID, state: StateIdle}
	s.sessions[contextID] = sess
	msg := s.appendLocked(sess, model.ChatMessage{
		ID:        s.newID(),
		ContextID: contextID,
		Role:      model.RoleAssistant,
		Text:      greeting,
		CreatedAt: s.now(),
	})
	return sess, []model.ChatMessage{msg}, nil
}

// appendLocked stamps the next sequence number and keeps timestamps
// non-decreasing within the session.
func (s *Service) appendLocked(sess *session, msg model.ChatMessage) model.ChatMessage {
	sess.seq++
	msg.Seq = sess.seq
	if n := len(sess.messages); n > 0 {
		if last := sess.messages[n-1].CreatedAt; msg.CreatedAt.Before(last) {
			msg.CreatedAt = last
		}
	}
	sess.messages = append(sess.messages, msg)
	return msg.Clone()
}

func (s *Service) locateLocked(contextID, messageID string) (*session, int, error) {
	sess, ok := s.sessions[contextID]
	if !ok {
		return nil, -1, fmt.Errorf("%w: chat context %q", model.ErrNotFound, contextID)
	}
	for i := range sess.messages {
		if sess.messages[i].ID == messageID {
			return sess, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: message %q", model.ErrNotFound, messageID)
}

func (s *Service) message(contextID, messageID string) (model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, idx, err := s.locateLocked(contextID, messageID)
	if err != nil {
		return model.ChatMessage{}, err
	}
	msg := sess.messages[idx]
	if msg.Role != model.RoleAssistant {
		return model.ChatMessage{}, fmt.Errorf("%w: only assistant messages can be acknowledged", model.ErrValidation)
	}
	return msg.Clone(), nil
}

func (s *Service) afterAppend(msgs ...model.ChatMessage) {
	for _, msg := range msgs {
		s.record(msg)
		s.broker.Publish(pubsub.CreatedEvent, Event{ContextID: msg.ContextID, Message: msg, State: s.State(msg.ContextID)})
	}
}

func (s *Service) record(msg model.ChatMessage) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveMessage(context.Background(), msg); err != nil {
		s.logger.Error("failed to persist chat message", "context", msg.ContextID, "message_id", msg.ID, "err", err)
	}
}

func pickItems(msg model.ChatMessage, sel Selection) ([]int, error) {
	switch sel.Kind {
	case AcceptAll:
		var picked []int
		for i := range msg.Action.Items {
			if !msg.Applied[i] {
				picked = append(picked, i)
			}
		}
		if len(picked) == 0 {
			return nil, fmt.Errorf("%w: suggestions of message %q were already applied", model.ErrValidation, msg.ID)
		}
		return picked, nil
	case AcceptItem:
		if sel.Index < 0 || sel.Index >= len(msg.Action.Items) {
			return nil, fmt.Errorf("%w: suggestion %d of message %q", model.ErrNotFound, sel.Index+1, msg.ID)
		}
		if msg.Applied[sel.Index] {
			return nil, fmt.Errorf("%w: suggestion %d of message %q was already applied", model.ErrValidation, sel.Index+1, msg.ID)
		}
		return []int{sel.Index}, nil
	default:
		return nil, fmt.Errorf("%w: unknown selection", model.ErrValidation)
	}
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func cloneMessages(msgs []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Clone()
	}
	return out
}

func sortBySeq(msgs []model.ChatMessage) {
	slices.SortStableFunc(msgs, func(a, b model.ChatMessage) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
}
