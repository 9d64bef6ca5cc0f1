package actionscheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	as "github.com/windygo/actionscheduler"
)

func recorder() (as.Callback, func() []string) {
	var mu sync.Mutex
	var fired []string
	cb := func(arg any) as.Result {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, arg.(string))
		return as.Oneshot
	}
	return cb, func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(fired))
		copy(out, fired)
		return out
	}
}

func TestSchedule_OrderingAndNextEventDelay(t *testing.T) {
	e := as.New(as.WithCapacity(8))
	cb, fired := recorder()

	e.Schedule(30*time.Millisecond, cb, "c")
	e.Schedule(10*time.Millisecond, cb, "a")
	e.Schedule(20*time.Millisecond, cb, "b")

	require.Equal(t, 10*time.Millisecond, e.NextEventDelay())

	require.True(t, e.Proceed(10*time.Millisecond))
	assert.Equal(t, []string{"a"}, fired())
	require.Equal(t, 10*time.Millisecond, e.NextEventDelay())

	require.True(t, e.Proceed(20*time.Millisecond))
	assert.Equal(t, []string{"a", "b", "c"}, fired())
	assert.Equal(t, as.DelayInfinite, e.NextEventDelay())
}

func TestUnschedule_StaleHandleAfterFireIsRejected(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	cb, _ := recorder()

	h := e.Schedule(5*time.Millisecond, cb, "x")
	require.True(t, e.Proceed(5 * time.Millisecond))

	stale := h
	assert.False(t, e.Unschedule(&stale))

	h2 := e.Schedule(5*time.Millisecond, cb, "y")
	assert.False(t, e.Unschedule(&h))
	assert.True(t, e.Unschedule(&h2))
	assert.Equal(t, as.ActionHandleInvalid, h2)
}

func TestUnschedule_CorruptedGenerationByteRejected(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	cb, _ := recorder()

	h := e.Schedule(5*time.Millisecond, cb, "x")
	corrupted := h ^ 0x0100 // flip a bit in the generation byte
	assert.False(t, e.Unschedule(&corrupted))
	assert.True(t, e.IsCallbackArmed(cb))
	assert.True(t, e.Unschedule(&h))
}

func TestUnschedule_PendingActionCancelsBeforeFiring(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	cb, fired := recorder()

	h := e.Schedule(10*time.Millisecond, cb, "x")
	require.True(t, e.Unschedule(&h))
	require.False(t, e.Proceed(time.Hour))
	assert.Empty(t, fired())
}

func TestScheduleWithReload_RefiresUntilCallbackReturnsOneshot(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	var count int
	var h as.ActionHandle
	cb := func(arg any) as.Result {
		count++
		if count >= 3 {
			return as.Oneshot
		}
		return as.Reload
	}
	h = e.ScheduleWithReload(10*time.Millisecond, 10*time.Millisecond, cb, nil)

	require.True(t, e.Proceed(10 * time.Millisecond))
	assert.Equal(t, 1, count)
	require.True(t, e.IsCallbackArmed(cb))

	require.True(t, e.Proceed(10 * time.Millisecond))
	assert.Equal(t, 2, count)

	require.True(t, e.Proceed(10 * time.Millisecond))
	assert.Equal(t, 3, count)
	assert.False(t, e.IsCallbackArmed(cb))
	_ = h
}

func TestProceedingTime_AccumulatesAcrossFiredCallbacks(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	cb, _ := recorder()

	e.Schedule(10*time.Millisecond, cb, "a")
	e.Schedule(25*time.Millisecond, cb, "b")

	// Both actions fire (10ms + 15ms); the 15ms left over is not counted
	// because the list is empty once "b" has fired.
	e.Proceed(40 * time.Millisecond)
	assert.Equal(t, 25*time.Millisecond, e.ProceedingTime())

	e.ClearProceedingTime()
	assert.Equal(t, time.Duration(0), e.ProceedingTime())
}

func TestProceed_LargeFanOutFiresInStaggeredOrder(t *testing.T) {
	const n = 64
	e := as.New(as.WithCapacity(n))
	var mu sync.Mutex
	var order []int
	for i := 0; i < n; i++ {
		i := i
		e.Schedule(time.Duration(n-i)*time.Millisecond, func(arg any) as.Result {
			mu.Lock()
			order = append(order, arg.(int))
			mu.Unlock()
			return as.Oneshot
		}, i)
	}

	require.True(t, e.Proceed(time.Duration(n) * time.Millisecond))
	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, n-1-i, order[i])
	}
}

func TestProceed_ReloadDoesNotDoubleCountActiveSlots(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	var reloads int
	cb := func(arg any) as.Result {
		reloads++
		return as.Reload
	}
	e.ScheduleWithReload(10*time.Millisecond, 10*time.Millisecond, cb, nil)
	e.Schedule(5*time.Millisecond, func(arg any) as.Result { return as.Oneshot }, nil)

	e.Proceed(5 * time.Millisecond)
	e.Proceed(5 * time.Millisecond)
	e.Proceed(10 * time.Millisecond)
	e.Proceed(10 * time.Millisecond)

	// The reloading action fired once per period and is the only pending
	// action. If the reload path counted the re-armed slot twice, Proceed
	// would treat the lone slot as a longer list and fire it again.
	assert.Equal(t, 3, reloads)
	assert.Equal(t, 10*time.Millisecond, e.NextEventDelay())

	h := e.Schedule(time.Millisecond, func(arg any) as.Result { return as.Oneshot }, nil)
	assert.True(t, h.Valid())
}

func TestCallback_SelfUnscheduleDuringReloadSkipsReinsertion(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	var h as.ActionHandle
	var called int
	cb := func(arg any) as.Result {
		called++
		e.Unschedule(&h)
		return as.Reload
	}
	h = e.ScheduleWithReload(5*time.Millisecond, 5*time.Millisecond, cb, nil)

	require.True(t, e.Proceed(5 * time.Millisecond))
	assert.Equal(t, 1, called)
	assert.False(t, e.IsCallbackArmed(cb))
	require.False(t, e.Proceed(time.Hour))
}

func TestCallback_CanRescheduleItself(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	var calls int
	var cb as.Callback
	cb = func(arg any) as.Result {
		calls++
		if calls < 3 {
			e.Schedule(5*time.Millisecond, cb, nil)
		}
		return as.Oneshot
	}
	e.Schedule(5*time.Millisecond, cb, nil)

	e.Proceed(5 * time.Millisecond)
	e.Proceed(5 * time.Millisecond)
	e.Proceed(5 * time.Millisecond)
	assert.Equal(t, 3, calls)
}

func TestUnscheduleAll_RemovesEveryMatchingCallback(t *testing.T) {
	e := as.New(as.WithCapacity(8))
	cbA, firedA := recorder()
	// cbB is a separate function: UnscheduleAll matches callbacks by
	// function, so two closures from recorder() would count as the same one.
	var firedB []string
	cbB := func(arg any) as.Result {
		firedB = append(firedB, arg.(string))
		return as.Oneshot
	}

	e.Schedule(5*time.Millisecond, cbA, "a1")
	e.Schedule(10*time.Millisecond, cbB, "b1")
	e.Schedule(15*time.Millisecond, cbA, "a2")

	assert.True(t, e.UnscheduleAll(cbA))
	assert.False(t, e.UnscheduleAll(cbA))

	e.Proceed(time.Hour)
	assert.Empty(t, firedA())
	assert.Equal(t, []string{"b1"}, firedB)
}

func TestClear_RemovesAllPendingActions(t *testing.T) {
	e := as.New(as.WithCapacity(4))
	cb, fired := recorder()
	e.Schedule(5*time.Millisecond, cb, "x")
	e.Schedule(10*time.Millisecond, cb, "y")

	e.Clear()
	assert.Equal(t, as.DelayInfinite, e.NextEventDelay())
	e.Proceed(time.Hour)
	assert.Empty(t, fired())
}

func TestSchedule_PoolFullReturnsInvalidHandle(t *testing.T) {
	e := as.New(as.WithCapacity(2))
	cb, _ := recorder()
	require.True(t, e.Schedule(time.Millisecond, cb, nil).Valid())
	require.True(t, e.Schedule(time.Millisecond, cb, nil).Valid())
	assert.Equal(t, as.ActionHandleInvalid, e.Schedule(time.Millisecond, cb, nil))
}

func TestSchedule_NilCallbackReturnsInvalidHandle(t *testing.T) {
	e := as.New(as.WithCapacity(2))
	assert.Equal(t, as.ActionHandleInvalid, e.Schedule(time.Millisecond, nil, nil))
}
