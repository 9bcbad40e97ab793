package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"AgentFlow/bot/flow"
	"AgentFlow/entity"
	"AgentFlow/internal/lib/sl"
)

// ErrTimerPersistence marks a durable timer that could not be saved or
// claimed. The owning session is marked stalled, never silently dropped.
var ErrTimerPersistence = errors.New("timer persistence failure")

// Store persists delay timers across restarts.
type Store interface {
	SaveTimer(ctx context.Context, rec *entity.TimerRecord) error
	// ClaimTimer atomically flips fired from false to true. Only the caller
	// that wins the claim may emit the TimerFired event.
	ClaimTimer(ctx context.Context, timerID string) (bool, error)
	DeleteTimer(ctx context.Context, timerID string) error
	ListPendingTimers(ctx context.Context) ([]*entity.TimerRecord, error)
}

// Sink receives timer firings. The session manager implements it.
type Sink interface {
	HandleTimerFired(ctx context.Context, contactID, timerID string)
	HandleInactivityTimeout(ctx context.Context, contactID string)
}

// Service schedules delay-node waits and per-contact inactivity timeouts.
// Delay timers are persisted before arming and replayed on startup;
// inactivity timers are in-memory and re-armed from session state.
type Service struct {
	store Store
	clock Clock
	log   *slog.Logger

	mu         sync.Mutex
	sink       Sink
	delays     map[string]Stopper // timer id -> armed timer
	inactivity map[string]Stopper // contact id -> armed timer
}

// NewService creates a timer service. Pass RealClock outside of tests.
func NewService(store Store, clock Clock, log *slog.Logger) *Service {
	return &Service{
		store:      store,
		clock:      clock,
		log:        log.With(sl.Module("timer")),
		delays:     make(map[string]Stopper),
		inactivity: make(map[string]Stopper),
	}
}

// SetSink wires the consumer of fired timers. Must be called before any
// scheduling; kept as a setter to break the session-manager import cycle.
func (s *Service) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// ScheduleDelay persists and arms a one-shot delay timer for a suspended
// session. The record is written before the timer is armed so a crash in
// between loses no wait.
func (s *Service) ScheduleDelay(ctx context.Context, session *entity.Session, req flow.TimerRequest) error {
	rec := &entity.TimerRecord{
		ID:         req.TimerID,
		ContactID:  session.ContactID,
		WorkflowID: session.WorkflowID,
		NodeID:     req.NodeID,
		DueAt:      s.clock.Now().Add(req.Duration),
		Fired:      false,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.SaveTimer(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrTimerPersistence, err)
	}
	s.arm(rec)

	s.log.Debug("delay timer scheduled",
		slog.String("timer_id", rec.ID),
		slog.String("contact_id", rec.ContactID),
		slog.Time("due_at", rec.DueAt),
	)
	return nil
}

// CancelDelay stops an armed delay timer and removes its record. Used when a
// suspended session is reset or times out.
func (s *Service) CancelDelay(ctx context.Context, timerID string) {
	if timerID == "" {
		return
	}
	s.mu.Lock()
	if t, ok := s.delays[timerID]; ok {
		t.Stop()
		delete(s.delays, timerID)
	}
	s.mu.Unlock()

	if err := s.store.DeleteTimer(ctx, timerID); err != nil {
		s.log.Warn("deleting cancelled timer", slog.String("timer_id", timerID), sl.Err(err))
	}
}

// ScheduleInactivity (re)arms the inactivity timeout for a contact. Every
// successfully processed event reschedules it.
func (s *Service) ScheduleInactivity(contactID string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.inactivity[contactID]; ok {
		t.Stop()
	}
	s.inactivity[contactID] = s.clock.AfterFunc(timeout, func() {
		s.mu.Lock()
		delete(s.inactivity, contactID)
		sink := s.sink
		s.mu.Unlock()
		if sink != nil {
			sink.HandleInactivityTimeout(context.Background(), contactID)
		}
	})
}

// CancelInactivity disarms the inactivity timeout for a contact.
func (s *Service) CancelInactivity(contactID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.inactivity[contactID]; ok {
		t.Stop()
		delete(s.inactivity, contactID)
	}
}

// Replay re-arms all unfired delay timers on startup. Overdue timers fire
// immediately; the claim in fire keeps delivery exactly-once even when an
// old process raced the same record before dying.
func (s *Service) Replay(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingTimers(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending timers: %w", err)
	}
	for _, rec := range pending {
		s.arm(rec)
	}
	if len(pending) > 0 {
		s.log.Info("replayed delay timers", slog.Int("count", len(pending)))
	}
	return len(pending), nil
}

func (s *Service) arm(rec *entity.TimerRecord) {
	wait := rec.DueAt.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	s.mu.Lock()
	s.delays[rec.ID] = s.clock.AfterFunc(wait, func() {
		s.fire(rec)
	})
	s.mu.Unlock()
}

func (s *Service) fire(rec *entity.TimerRecord) {
	s.mu.Lock()
	delete(s.delays, rec.ID)
	sink := s.sink
	s.mu.Unlock()

	ctx := context.Background()
	claimed, err := s.store.ClaimTimer(ctx, rec.ID)
	if err != nil {
		s.log.Error("claiming fired timer",
			slog.String("timer_id", rec.ID),
			slog.String("contact_id", rec.ContactID),
			sl.Err(err),
		)
		return
	}
	if !claimed {
		// Another process already delivered this firing.
		return
	}
	if sink != nil {
		sink.HandleTimerFired(ctx, rec.ContactID, rec.ID)
	}

	// The claim already guarantees exactly-once delivery; the record has no
	// further use and would otherwise accumulate forever.
	if err := s.store.DeleteTimer(ctx, rec.ID); err != nil {
		s.log.Warn("deleting delivered timer", slog.String("timer_id", rec.ID), sl.Err(err))
	}
}
