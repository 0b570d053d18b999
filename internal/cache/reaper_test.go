package cache

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartReaper_InvokesSweepPeriodically(t *testing.T) {
	var ticks int64
	r := startReaper(5*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	}, zap.NewNop())
	defer r.stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 2
	}, time.Second, time.Millisecond)
}

func TestReaper_StopObservedAtNextTick(t *testing.T) {
	var ticks int64
	r := startReaper(20*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	}, zap.NewNop())

	r.stop()
	require.NoError(t, r.group.Wait())

	seenAtStop := atomic.LoadInt64(&ticks)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, seenAtStop, atomic.LoadInt64(&ticks), "no sweep should run after stop")
}

func TestReaper_StopIsSafeOnNilReceiver(t *testing.T) {
	var r *reaper
	assert.NotPanics(t, func() { r.stop() })
}

func TestReaper_PanicInSweepIsRecovered(t *testing.T) {
	r := startReaper(5*time.Millisecond, func() {
		panic("boom")
	}, zap.NewNop())

	require.Eventually(t, func() bool {
		return r.group.Wait() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestCache_ReaperSweepsExpiredEntriesAndSelfCancels(t *testing.T) {
	// Changing the expiration window between the two puts must apply only
	// to the later one; "two" keeps the shorter TTL it was stamped with.
	c := New[string, int](Config[string]{
		ExpirationWindow: 5 * time.Millisecond,
		PollingInterval:  5 * time.Millisecond,
	})
	require.NoError(t, c.Put("two", 50))

	require.NoError(t, c.SetExpirationWindow(40*time.Millisecond))
	require.NoError(t, c.Put("one", 50))

	polling, err := c.IsPolling()
	require.NoError(t, err)
	require.True(t, polling)

	// ContainsKey, unlike Get, never deletes an expired entry itself, so
	// the count check below can only pass through the reaper's sweeps.
	require.Eventually(t, func() bool {
		hasTwo, errTwo := c.ContainsKey("two")
		return errTwo == nil && !hasTwo
	}, time.Second, time.Millisecond, "two's original 5ms window must still apply")

	require.Eventually(t, func() bool {
		hasOne, errOne := c.ContainsKey("one")
		return errOne == nil && !hasOne
	}, time.Second, time.Millisecond, "one's later 40ms window must eventually elapse too")

	require.Eventually(t, func() bool {
		count, err := c.Count()
		require.NoError(t, err)
		return count == 0
	}, time.Second, time.Millisecond, "reaper should have swept both expired entries")

	require.Eventually(t, func() bool {
		polling, err := c.IsPolling()
		require.NoError(t, err)
		return !polling
	}, time.Second, time.Millisecond, "reaper should self-cancel once the map is empty")
}

func TestCache_SetExpirationWindow_DoesNotAffectAlreadyStampedEntries(t *testing.T) {
	advance := freezeClock(t)
	c := New[string, int](Config[string]{ExpirationWindow: 10 * time.Millisecond})
	require.NoError(t, c.Put("k", 1))

	require.NoError(t, c.SetExpirationWindow(time.Hour))

	advance(20 * time.Millisecond)
	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrNotFound, "k was stamped under the old 10ms window")
}

func TestCache_SetPollingInterval_ZeroCancelsReaper(t *testing.T) {
	c := New[string, int](Config[string]{ExpirationWindow: time.Hour, PollingInterval: 5 * time.Millisecond})
	require.NoError(t, c.Put("k", 1))

	polling, err := c.IsPolling()
	require.NoError(t, err)
	require.True(t, polling)

	require.NoError(t, c.SetPollingInterval(0))
	polling, err = c.IsPolling()
	require.NoError(t, err)
	assert.False(t, polling)
}

func TestCache_SetPollingInterval_RearmsWithFreshInterval(t *testing.T) {
	c := New[string, int](Config[string]{ExpirationWindow: time.Hour, PollingInterval: time.Hour})
	require.NoError(t, c.Put("k", 1))

	oldReaper := c.reaper
	require.NotNil(t, oldReaper)

	require.NoError(t, c.SetPollingInterval(5*time.Millisecond))

	require.Eventually(t, func() bool {
		return oldReaper.group.Wait() == nil
	}, time.Second, time.Millisecond, "the old reaper task must be cancelled")

	require.NotSame(t, oldReaper, c.reaper, "a fresh reaper must replace the old one")

	polling, err := c.IsPolling()
	require.NoError(t, err)
	assert.True(t, polling, "the fresh reaper should still be considered armed")
}

func TestCache_SetCapacity_ClampsAndTakesEffectOnNextPut(t *testing.T) {
	c := New[string, int](Config[string]{Capacity: 5, ExpirationWindow: time.Hour})
	require.NoError(t, c.Put("a", 1))
	require.NoError(t, c.Put("b", 2))

	require.NoError(t, c.SetCapacity(-1))
	assert.Equal(t, defaultCapacity, c.capacity)

	require.NoError(t, c.SetCapacity(1))
	require.NoError(t, c.Put("c", 3))

	count, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "shrinking capacity should evict down on the next put")
}

func TestCache_SetUseSlidingExpiration_TakesEffectOnNextRead(t *testing.T) {
	advance := freezeClock(t)
	c := New[string, int](Config[string]{ExpirationWindow: 10 * time.Millisecond, UseSlidingExpiration: false})
	require.NoError(t, c.Put("k", 1))

	require.NoError(t, c.SetUseSlidingExpiration(true))

	advance(5 * time.Millisecond)
	_, err := c.Get("k")
	require.NoError(t, err)

	advance(7 * time.Millisecond)
	_, err = c.Get("k")
	assert.NoError(t, err, "sliding was enabled before this read extended the deadline")
}

func TestCache_Setters_FailAfterDisposal(t *testing.T) {
	c := New[string, int](Config[string]{ExpirationWindow: time.Hour})
	c.Dispose()

	assert.ErrorIs(t, c.SetExpirationWindow(time.Second), ErrUsedAfterDisposal)
	assert.ErrorIs(t, c.SetPollingInterval(time.Second), ErrUsedAfterDisposal)
	assert.ErrorIs(t, c.SetCapacity(10), ErrUsedAfterDisposal)
	assert.ErrorIs(t, c.SetUseSlidingExpiration(true), ErrUsedAfterDisposal)
}

func TestCache_ReaperDoesNotArmWhenPollingIntervalIsZero(t *testing.T) {
	c := New[string, int](Config[string]{ExpirationWindow: time.Hour, PollingInterval: 0})
	require.NoError(t, c.Put("k", 1))

	polling, err := c.IsPolling()
	require.NoError(t, err)
	assert.False(t, polling)
}

func TestCache_DisposeStopsAnActiveReaper(t *testing.T) {
	c := New[string, int](Config[string]{ExpirationWindow: time.Hour, PollingInterval: 5 * time.Millisecond})
	require.NoError(t, c.Put("k", 1))

	activeReaper := c.reaper
	require.NotNil(t, activeReaper)

	c.Dispose()

	require.Eventually(t, func() bool {
		return activeReaper.group.Wait() == nil
	}, time.Second, time.Millisecond)
}
