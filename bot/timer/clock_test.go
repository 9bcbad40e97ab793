package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualClock_AdvanceFiresInDueOrder(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var fired []string
	// Armed out of due order on purpose.
	clock.AfterFunc(3*time.Minute, func() { fired = append(fired, "late") })
	clock.AfterFunc(time.Minute, func() { fired = append(fired, "early") })
	clock.AfterFunc(2*time.Minute, func() { fired = append(fired, "middle") })

	clock.Advance(5 * time.Minute)
	require.Equal(t, []string{"early", "middle", "late"}, fired)
}

func TestManualClock_StoppedTimerDoesNotFire(t *testing.T) {
	t.Parallel()

	clock := NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var fired int
	s := clock.AfterFunc(time.Minute, func() { fired++ })
	require.True(t, s.Stop())
	require.False(t, s.Stop())

	clock.Advance(time.Hour)
	require.Zero(t, fired)
}
