package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"AgentFlow/bot/flow"
	"AgentFlow/entity"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same claim semantics as the
// database: fired flips false->true exactly once.
type memStore struct {
	mu      sync.Mutex
	timers  map[string]*entity.TimerRecord
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{timers: make(map[string]*entity.TimerRecord)}
}

func (m *memStore) SaveTimer(_ context.Context, rec *entity.TimerRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.timers[rec.ID] = &cp
	return nil
}

func (m *memStore) ClaimTimer(_ context.Context, timerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.timers[timerID]
	if !ok || rec.Fired {
		return false, nil
	}
	rec.Fired = true
	return true, nil
}

func (m *memStore) DeleteTimer(_ context.Context, timerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.timers, timerID)
	return nil
}

func (m *memStore) has(timerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[timerID]
	return ok
}

func (m *memStore) ListPendingTimers(_ context.Context) ([]*entity.TimerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TimerRecord
	for _, rec := range m.timers {
		if !rec.Fired {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type recordingSink struct {
	mu       sync.Mutex
	fired    []string
	timeouts []string
}

func (r *recordingSink) HandleTimerFired(_ context.Context, contactID, timerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, timerID)
}

func (r *recordingSink) HandleInactivityTimeout(_ context.Context, contactID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = append(r.timeouts, contactID)
}

func (r *recordingSink) firedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func (r *recordingSink) timedOut() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.timeouts...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession() *entity.Session {
	return &entity.Session{ContactID: "contact-1", WorkflowID: "wf-1"}
}

func TestScheduleDelay_FiresOnce(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	sink := &recordingSink{}
	svc := NewService(store, clock, testLogger())
	svc.SetSink(sink)

	req := flow.TimerRequest{TimerID: "t-1", NodeID: "wait", Duration: 5 * time.Minute}
	require.NoError(t, svc.ScheduleDelay(context.Background(), testSession(), req))

	clock.Advance(4 * time.Minute)
	require.Empty(t, sink.firedIDs())

	clock.Advance(time.Minute)
	require.Equal(t, []string{"t-1"}, sink.firedIDs())

	// Delivered timers are removed from the store, not kept as fired records.
	require.False(t, store.has("t-1"))

	// The claim was consumed, a second firing attempt delivers nothing.
	clock.Advance(10 * time.Minute)
	require.Equal(t, []string{"t-1"}, sink.firedIDs())
}

func TestScheduleDelay_PersistenceFailure(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Now())
	store := newMemStore()
	store.saveErr = errors.New("mongo down")
	svc := NewService(store, clock, testLogger())
	svc.SetSink(&recordingSink{})

	err := svc.ScheduleDelay(context.Background(), testSession(), flow.TimerRequest{TimerID: "t-1", Duration: time.Minute})
	require.ErrorIs(t, err, ErrTimerPersistence)
}

func TestCancelDelay_StopsFiring(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Now())
	store := newMemStore()
	sink := &recordingSink{}
	svc := NewService(store, clock, testLogger())
	svc.SetSink(sink)

	require.NoError(t, svc.ScheduleDelay(context.Background(), testSession(), flow.TimerRequest{TimerID: "t-1", Duration: time.Minute}))
	svc.CancelDelay(context.Background(), "t-1")

	clock.Advance(2 * time.Minute)
	require.Empty(t, sink.firedIDs())

	pending, err := store.ListPendingTimers(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReplay_RearmsPendingAndFiresOverdueImmediately(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	require.NoError(t, store.SaveTimer(context.Background(), &entity.TimerRecord{
		ID: "overdue", ContactID: "c-1", DueAt: start.Add(-time.Minute),
	}))
	require.NoError(t, store.SaveTimer(context.Background(), &entity.TimerRecord{
		ID: "future", ContactID: "c-2", DueAt: start.Add(10 * time.Minute),
	}))

	// Simulates a restart: the new process sees only the persisted records.
	clock := NewManualClock(start)
	sink := &recordingSink{}
	svc := NewService(store, clock, testLogger())
	svc.SetSink(sink)

	count, err := svc.Replay(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	clock.Advance(0)
	require.Equal(t, []string{"overdue"}, sink.firedIDs())

	clock.Advance(10 * time.Minute)
	require.ElementsMatch(t, []string{"overdue", "future"}, sink.firedIDs())
}

func TestScheduleInactivity_ReschedulingPushesTimeoutBack(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Now())
	sink := &recordingSink{}
	svc := NewService(newMemStore(), clock, testLogger())
	svc.SetSink(sink)

	svc.ScheduleInactivity("contact-1", 10*time.Minute)

	// Activity one tick before expiry re-arms the full timeout.
	clock.Advance(9 * time.Minute)
	svc.ScheduleInactivity("contact-1", 10*time.Minute)

	clock.Advance(9 * time.Minute)
	require.Empty(t, sink.timedOut())

	clock.Advance(time.Minute)
	require.Equal(t, []string{"contact-1"}, sink.timedOut())
}

func TestCancelInactivity(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Now())
	sink := &recordingSink{}
	svc := NewService(newMemStore(), clock, testLogger())
	svc.SetSink(sink)

	svc.ScheduleInactivity("contact-1", time.Minute)
	svc.CancelInactivity("contact-1")

	clock.Advance(5 * time.Minute)
	require.Empty(t, sink.timedOut())
}
