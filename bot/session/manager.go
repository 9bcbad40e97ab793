package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"AgentFlow/bot/flow"
	"AgentFlow/bot/timer"
	"AgentFlow/entity"
	"AgentFlow/internal/lib/sl"
)

// Storage persists the active session per contact.
type Storage interface {
	SaveSession(ctx context.Context, s *entity.Session) error
	LoadSession(ctx context.Context, contactID string) (*entity.Session, error)
	DeleteSession(ctx context.Context, contactID string) error
}

// WorkflowSource supplies published workflow definitions.
type WorkflowSource interface {
	LoadWorkflow(ctx context.Context, id string) (*entity.WorkflowDefinition, error)
	ListActiveWorkflows(ctx context.Context) ([]*entity.WorkflowDefinition, error)
}

// Gateway delivers outbound actions. Delivery is fire-and-forget relative to
// state transitions: a failed send never rolls back session state.
type Gateway interface {
	Send(ctx context.Context, action entity.Action) error
}

// EventListener receives engine lifecycle events, e.g. for the operator
// WebSocket stream. Kept as an interface to avoid importing the hub here.
type EventListener interface {
	SessionEvent(evt entity.SessionEvent)
}

// Manager owns session lifecycle: it resolves or creates sessions for
// inbound events, invokes the interpreter, persists the result and arms
// timers. All work for one contact is strictly serialized.
type Manager struct {
	interp  *flow.Interpreter
	store   Storage
	source  WorkflowSource
	timers  *timer.Service
	gateway Gateway
	log     *slog.Logger

	defaultTimeout time.Duration
	locks          *contactLocks

	mu       sync.RWMutex
	graphs   map[string]*flow.Graph
	listener EventListener
}

// NewManager creates a session manager. defaultTimeout applies to workflows
// that do not set their own session timeout.
func NewManager(store Storage, source WorkflowSource, timers *timer.Service, gateway Gateway, interp *flow.Interpreter, defaultTimeout time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		interp:         interp,
		store:          store,
		source:         source,
		timers:         timers,
		gateway:        gateway,
		log:            log.With(sl.Module("session")),
		defaultTimeout: defaultTimeout,
		locks:          newContactLocks(),
		graphs:         make(map[string]*flow.Graph),
	}
}

// SetListener wires the operator event stream.
func (m *Manager) SetListener(l EventListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// InvalidateGraph drops a cached compiled graph after a re-publish.
func (m *Manager) InvalidateGraph(workflowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.graphs, workflowID)
}

// HandleIncomingText processes free text from the gateway. With an active
// session the text is a reply to the current awaiting state — never
// reinterpreted as a trigger. Without one, the trigger matcher decides
// whether a new session starts; no match drops the message silently.
func (m *Manager) HandleIncomingText(ctx context.Context, contactID, text string) error {
	lock := m.locks.get(contactID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.LoadSession(ctx, contactID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if s == nil {
		return m.startFromTrigger(ctx, contactID, text)
	}

	g, err := m.graph(ctx, s.WorkflowID)
	if err != nil {
		return err
	}

	ev := flow.Event{Kind: flow.EventUserReply, Text: text}
	// A bare number replying to a suspended choice node selects that
	// option, matching the numbered prompts the gateway renders.
	if s.Awaiting.Kind == entity.AwaitChoice {
		if n, convErr := strconv.Atoi(strings.TrimSpace(text)); convErr == nil && n >= 1 {
			ev = flow.Event{Kind: flow.EventChoiceSelected, Choice: n - 1}
		} else {
			ev = flow.Event{Kind: flow.EventChoiceSelected, Choice: -1}
		}
	}

	return m.advance(ctx, g, s, ev)
}

// HandleSelection processes an explicit button/menu choice from the gateway.
func (m *Manager) HandleSelection(ctx context.Context, contactID string, selection int) error {
	lock := m.locks.get(contactID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.LoadSession(ctx, contactID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		// Choice without a session: nothing to resume, drop it.
		return nil
	}

	g, err := m.graph(ctx, s.WorkflowID)
	if err != nil {
		return err
	}
	return m.advance(ctx, g, s, flow.Event{Kind: flow.EventChoiceSelected, Choice: selection})
}

// HandleTimerFired implements timer.Sink for delay timers.
func (m *Manager) HandleTimerFired(ctx context.Context, contactID, timerID string) {
	lock := m.locks.get(contactID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.LoadSession(ctx, contactID)
	if err != nil {
		m.log.Error("loading session for fired timer", slog.String("contact_id", contactID), sl.Err(err))
		return
	}
	if s == nil {
		return
	}

	g, err := m.graph(ctx, s.WorkflowID)
	if err != nil {
		m.log.Error("loading graph for fired timer", slog.String("contact_id", contactID), sl.Err(err))
		return
	}

	if err := m.advance(ctx, g, s, flow.Event{Kind: flow.EventTimerFired, TimerID: timerID}); err != nil {
		m.log.Error("advancing on fired timer", slog.String("contact_id", contactID), sl.Err(err))
	}
}

// HandleInactivityTimeout implements timer.Sink for inactivity timeouts. It
// terminates even a session that is indefinitely suspended.
func (m *Manager) HandleInactivityTimeout(ctx context.Context, contactID string) {
	lock := m.locks.get(contactID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.LoadSession(ctx, contactID)
	if err != nil {
		m.log.Error("loading session for inactivity timeout", slog.String("contact_id", contactID), sl.Err(err))
		return
	}
	if s == nil {
		return
	}
	m.terminate(ctx, s, "inactivity timeout")
}

// GetActiveSession returns the contact's active session, or nil.
func (m *Manager) GetActiveSession(ctx context.Context, contactID string) (*entity.Session, error) {
	return m.store.LoadSession(ctx, contactID)
}

// Reset clears a contact's active session unconditionally.
func (m *Manager) Reset(ctx context.Context, contactID string) error {
	lock := m.locks.get(contactID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.store.LoadSession(ctx, contactID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return nil
	}
	m.terminate(ctx, s, "reset")
	return nil
}

// RearmInactivity re-arms inactivity timeouts for all active sessions.
// Called on startup after timer replay so restarts keep the timeout contract.
func (m *Manager) RearmInactivity(ctx context.Context, sessions []*entity.Session) {
	for _, s := range sessions {
		def, err := m.source.LoadWorkflow(ctx, s.WorkflowID)
		if err != nil || def == nil {
			m.log.Warn("rearming inactivity", slog.String("contact_id", s.ContactID), sl.Err(err))
			continue
		}
		if !def.Settings.ResetOnInactivity {
			continue
		}
		elapsed := time.Since(s.LastActivityAt)
		remaining := m.timeoutFor(def) - elapsed
		if remaining < 0 {
			remaining = 0
		}
		m.timers.ScheduleInactivity(s.ContactID, remaining)
	}
}

func (m *Manager) startFromTrigger(ctx context.Context, contactID, text string) error {
	active, err := m.source.ListActiveWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("listing active workflows: %w", err)
	}

	def := flow.MatchTrigger(text, active)
	if def == nil {
		m.log.Debug("no trigger match, message dropped", slog.String("contact_id", contactID))
		return nil
	}

	g, err := m.graph(ctx, def.ID)
	if err != nil {
		return err
	}

	s := entity.NewSession(contactID, def.ID, g.Start())
	if err := m.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("saving new session: %w", err)
	}

	m.log.Info("session started",
		slog.String("contact_id", contactID),
		slog.String("workflow_id", def.ID),
	)
	m.emit(entity.SessionEvent{
		Type:       entity.SessionStarted,
		ContactID:  contactID,
		WorkflowID: def.ID,
		Time:       time.Now(),
	})

	return m.advance(ctx, g, s, flow.Event{Kind: flow.EventSessionStart})
}

// advance runs one interpreter step and makes its outcome durable: session
// state is persisted before actions are dispatched, so the graph position
// stays authoritative whatever the gateway does.
func (m *Manager) advance(ctx context.Context, g *flow.Graph, s *entity.Session, ev flow.Event) error {
	res := m.interp.Step(g, s, ev)
	if res.Ignored {
		m.log.Debug("stale event ignored",
			slog.String("contact_id", s.ContactID),
			slog.String("event", string(ev.Kind)),
			slog.String("awaiting", string(s.Awaiting.Kind)),
		)
		return nil
	}

	for _, name := range res.UnboundVars {
		m.log.Warn("template variable unbound, rendered empty",
			slog.String("contact_id", s.ContactID),
			slog.String("variable", name),
		)
	}

	if res.Terminated {
		m.dispatch(ctx, s, res.Actions)
		m.terminate(ctx, s, res.Reason)
		return nil
	}

	s.LastActivityAt = time.Now()
	if err := m.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	for _, req := range res.Timers {
		if err := m.timers.ScheduleDelay(ctx, s, req); err != nil {
			if errors.Is(err, timer.ErrTimerPersistence) {
				m.stall(ctx, s, err)
				return nil
			}
			return err
		}
	}

	def := g.Definition()
	if def.Settings.ResetOnInactivity {
		m.timers.ScheduleInactivity(s.ContactID, m.timeoutFor(def))
	}

	m.dispatch(ctx, s, res.Actions)
	return nil
}

// dispatch hands actions to the gateway. Failures are surfaced to operators
// and logged; they never affect the session's position in the graph.
func (m *Manager) dispatch(ctx context.Context, s *entity.Session, actions []entity.Action) {
	for _, a := range actions {
		if err := m.gateway.Send(ctx, a); err != nil {
			m.log.Error("outbound send failed",
				slog.String("contact_id", s.ContactID),
				sl.Err(err),
			)
			m.emit(entity.SessionEvent{
				Type:       entity.SendFailed,
				ContactID:  s.ContactID,
				WorkflowID: s.WorkflowID,
				NodeID:     s.CurrentNodeID,
				Reason:     err.Error(),
				Time:       time.Now(),
			})
		}
	}
}

// terminate destroys a session and disarms its timers.
func (m *Manager) terminate(ctx context.Context, s *entity.Session, reason string) {
	if s.Awaiting.Kind == entity.AwaitTimer {
		m.timers.CancelDelay(ctx, s.Awaiting.TimerID)
	}
	m.timers.CancelInactivity(s.ContactID)

	if err := m.store.DeleteSession(ctx, s.ContactID); err != nil {
		m.log.Error("deleting session", slog.String("contact_id", s.ContactID), sl.Err(err))
	}

	m.log.Info("session terminated",
		slog.String("contact_id", s.ContactID),
		slog.String("workflow_id", s.WorkflowID),
		slog.String("reason", reason),
	)
	m.emit(entity.SessionEvent{
		Type:       entity.SessionTerminated,
		ContactID:  s.ContactID,
		WorkflowID: s.WorkflowID,
		NodeID:     s.CurrentNodeID,
		Reason:     reason,
		Time:       time.Now(),
	})
}

// stall marks a session whose durable timer was lost. The session stops
// advancing but is kept for operator inspection instead of vanishing.
func (m *Manager) stall(ctx context.Context, s *entity.Session, cause error) {
	s.Stalled = true
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.log.Error("saving stalled session", slog.String("contact_id", s.ContactID), sl.Err(err))
	}

	m.log.Error("session stalled",
		slog.String("contact_id", s.ContactID),
		slog.String("workflow_id", s.WorkflowID),
		sl.Err(cause),
	)
	m.emit(entity.SessionEvent{
		Type:       entity.SessionStalled,
		ContactID:  s.ContactID,
		WorkflowID: s.WorkflowID,
		NodeID:     s.CurrentNodeID,
		Reason:     cause.Error(),
		Time:       time.Now(),
	})
}

func (m *Manager) timeoutFor(def *entity.WorkflowDefinition) time.Duration {
	if def.Settings.SessionTimeoutMinutes > 0 {
		return time.Duration(def.Settings.SessionTimeoutMinutes) * time.Minute
	}
	return m.defaultTimeout
}

func (m *Manager) graph(ctx context.Context, workflowID string) (*flow.Graph, error) {
	m.mu.RLock()
	g, ok := m.graphs[workflowID]
	m.mu.RUnlock()
	if ok {
		return g, nil
	}

	def, err := m.source.LoadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", workflowID, err)
	}
	if def == nil {
		return nil, fmt.Errorf("workflow %s not found", workflowID)
	}
	g, err = flow.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("compiling workflow %s: %w", workflowID, err)
	}

	m.mu.Lock()
	m.graphs[workflowID] = g
	m.mu.Unlock()
	return g, nil
}

func (m *Manager) emit(evt entity.SessionEvent) {
	m.mu.RLock()
	l := m.listener
	m.mu.RUnlock()
	if l != nil {
		l.SessionEvent(evt)
	}
}
