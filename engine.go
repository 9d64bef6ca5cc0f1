package actionscheduler

import (
	"math"
	"reflect"
	"sync"
	"time"
)

// DelayInfinite is returned by [Engine.NextEventDelay] when no action is
// pending, the Go analogue of the original's UINT32_MAX sentinel.
const DelayInfinite time.Duration = math.MaxInt64

// actionSlot is one entry in the fixed pool. See spec's ActionSlot.
type actionSlot struct {
	callback        Callback
	arg             any
	delayToPrevious time.Duration
	reload          time.Duration
	usedCounter     uint8
	prevIdx         uint8
	nextIdx         uint8
}

// Engine is a fixed-capacity timeline scheduler. The zero value is not
// usable; construct one with [New].
//
// All exported methods are safe to call concurrently, including from a
// goroutine standing in for interrupt context. [Engine.Proceed] releases
// its lock around every callback invocation, so callbacks may call any
// method on the same Engine, including against their own handle.
type Engine struct {
	mu             sync.Mutex
	slots          []actionSlot
	headIdx        uint8
	tailIdx        uint8
	activeCount    int
	proceedingTime time.Duration
	logger         Logger
}

// New constructs an Engine with the given options applied. Capacity
// defaults to [DefaultCapacity].
func New(opts ...Option) *Engine {
	o := resolveOptions(opts)
	return &Engine{
		slots:  make([]actionSlot, o.capacity),
		logger: o.logger,
	}
}

// Capacity returns the fixed number of action slots.
func (e *Engine) Capacity() int {
	return len(e.slots)
}

// getFreeSlot scans the pool starting just past the current tail,
// wrapping around through every slot once. Unlike the original C
// implementation, it also checks the tail slot itself — the original skips
// it, which can spuriously report the pool full when the only free slot is
// the stale tail index. Nothing in the spec requires reproducing that.
func (e *Engine) getFreeSlot() (uint8, bool) {
	n := len(e.slots)
	for i := 0; i < n; i++ {
		idx := (int(e.tailIdx) + 1 + i) % n
		if e.slots[idx].callback == nil {
			return uint8(idx), true
		}
	}
	return 0, false
}

// insert splices a just-allocated slot (already holding its callback, arg,
// reload and usedCounter) into the non-empty active list so that its total
// distance from the head equals delay. Must be called with the lock held,
// and only when activeCount was already >= 1 before the call.
func (e *Engine) insert(idx uint8, delay time.Duration) {
	idxA := -1
	idxB := int(e.headIdx)
	for e.slots[idxB].delayToPrevious <= delay {
		delay -= e.slots[idxB].delayToPrevious
		idxA = idxB
		if idxB == int(e.tailIdx) {
			idxB = -1
			break
		}
		idxB = int(e.slots[idxB].nextIdx)
	}
	e.slots[idx].delayToPrevious = delay

	switch {
	case idxA < 0:
		// front insert: idxB is the old head.
		e.slots[idx].prevIdx = idx
		e.slots[idx].nextIdx = uint8(idxB)
		e.slots[idxB].prevIdx = idx
		e.slots[idxB].delayToPrevious -= e.slots[idx].delayToPrevious
		e.headIdx = idx
	case idxB < 0:
		// back insert: idxA is the old tail.
		e.slots[idx].prevIdx = uint8(idxA)
		e.slots[idx].nextIdx = idx
		e.slots[idxA].nextIdx = idx
		e.tailIdx = idx
	default:
		// middle insert between idxA and idxB.
		e.slots[idx].prevIdx = uint8(idxA)
		e.slots[idx].nextIdx = uint8(idxB)
		e.slots[idxA].nextIdx = idx
		e.slots[idxB].prevIdx = idx
		e.slots[idxB].delayToPrevious -= e.slots[idx].delayToPrevious
	}
}

// remove unlinks slot idx and frees it. Must be called with the lock held.
// A no-op on the list links when idx is an isolated node (mid-callback
// self-unschedule) that is not the current head.
func (e *Engine) remove(idx uint8) {
	e.slots[idx].callback = nil
	switch {
	case e.activeCount > 1:
		switch {
		case idx == e.headIdx:
			next := e.slots[idx].nextIdx
			e.slots[next].prevIdx = next
			e.activeCount--
			timeLeft := e.slots[e.headIdx].delayToPrevious
			e.headIdx = next
			e.slots[e.headIdx].delayToPrevious += timeLeft
		case idx == e.tailIdx:
			prev := e.slots[idx].prevIdx
			e.slots[prev].nextIdx = prev
			e.tailIdx = prev
			e.activeCount--
		default:
			if e.slots[idx].prevIdx == idx && e.slots[idx].nextIdx == idx {
				// isolated node mid-callback: not in the timeline, nothing to splice.
				return
			}
			prev := e.slots[idx].prevIdx
			next := e.slots[idx].nextIdx
			e.slots[prev].nextIdx = next
			e.slots[next].prevIdx = prev
			e.slots[next].delayToPrevious += e.slots[idx].delayToPrevious
			e.activeCount--
		}
	case e.activeCount == 1:
		if idx != e.headIdx {
			// isolated node, already freed above; timeline untouched.
			return
		}
		e.activeCount = 0
		e.headIdx = idx
		e.tailIdx = idx
	}
}

// Schedule arms cb to run once after delay, with its reload also set to
// delay (relevant only if cb returns [Reload]). Returns
// [ActionHandleInvalid] if cb is nil or the pool is full.
func (e *Engine) Schedule(delay time.Duration, cb Callback, arg any) ActionHandle {
	return e.ScheduleWithReload(delay, delay, cb, arg)
}

// ScheduleWithReload is [Engine.Schedule] with a reload distinct from the
// initial delay.
func (e *Engine) ScheduleWithReload(delay, reload time.Duration, cb Callback, arg any) ActionHandle {
	if cb == nil {
		return ActionHandleInvalid
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.getFreeSlot()
	if !ok {
		if e.logger.Enabled(LevelWarn) {
			e.logger.Log(Entry{Level: LevelWarn, Message: "schedule failed: pool full", Slot: -1})
		}
		return ActionHandleInvalid
	}

	s := &e.slots[idx]
	s.usedCounter++
	s.callback = cb
	s.arg = arg
	s.delayToPrevious = delay
	s.reload = reload

	if e.activeCount == 0 {
		s.prevIdx = idx
		s.nextIdx = idx
		e.headIdx = idx
		e.tailIdx = idx
		e.activeCount = 1
	} else {
		e.activeCount++
		e.insert(idx, delay)
	}

	h := newActionHandle(idx, s.usedCounter)
	if e.logger.Enabled(LevelDebug) {
		e.logger.Log(Entry{Level: LevelDebug, Message: "scheduled", Slot: int(idx), Handle: h})
	}
	return h
}

// Unschedule cancels the action referred to by *h, if it is still pending
// and *h's generation matches the slot's current one. On success it sets
// *h to [ActionHandleInvalid] and returns true. Calling it with a stale handle (already fired
// one-shot, or from an earlier tenant of the slot) is safe and returns
// false.
func (e *Engine) Unschedule(h *ActionHandle) bool {
	if h == nil || *h == ActionHandleInvalid {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := (*h).slot()
	if int(idx) >= len(e.slots) {
		return false
	}
	if e.slots[idx].callback == nil || e.slots[idx].usedCounter != (*h).generation() {
		return false
	}
	e.remove(idx)
	*h = ActionHandleInvalid
	return true
}

// UnscheduleAll removes every pending action whose callback matches cb,
// identified by function pointer (not closure state), and reports whether
// any were removed.
func (e *Engine) UnscheduleAll(cb Callback) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeCount == 0 {
		return false
	}
	removed := false
	current := e.headIdx
	for {
		next := e.slots[current].nextIdx
		atEnd := current == e.tailIdx
		if sameCallback(e.slots[current].callback, cb) {
			e.remove(current)
			removed = true
		}
		if atEnd {
			break
		}
		current = next
	}
	return removed
}

// Clear frees every slot, resets generation counters, and zeroes the
// proceeding-time counter.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.slots {
		e.slots[i] = actionSlot{}
	}
	e.headIdx = 0
	e.tailIdx = 0
	e.activeCount = 0
	e.proceedingTime = 0
}

// Proceed advances the timeline by elapsed, firing every callback whose
// deadline has been reached, in order. It returns true iff at least one
// callback fired. Safe to call with elapsed == 0.
func (e *Engine) Proceed(elapsed time.Duration) bool {
	e.mu.Lock()
	fired := false

	for e.activeCount > 0 && elapsed >= e.slots[e.headIdx].delayToPrevious {
		head := e.headIdx
		d := e.slots[head].delayToPrevious
		elapsed -= d
		e.proceedingTime += d
		e.activeCount--

		cb := e.slots[head].callback
		arg := e.slots[head].arg
		gen := e.slots[head].usedCounter

		if e.activeCount > 0 {
			next := e.slots[head].nextIdx
			e.slots[next].prevIdx = next
			e.headIdx = next
			e.slots[head].nextIdx = head
		} else {
			e.slots[head].nextIdx = head
		}

		// The node is now isolated (prev == next == itself): the callback
		// may schedule or unschedule freely without corrupting the list.
		e.mu.Unlock()
		result := cb(arg)
		e.mu.Lock()

		switch {
		case e.slots[head].usedCounter != gen:
			// The callback freed this slot and a new action was scheduled
			// into it; the slot now belongs to that action.
		case result == Oneshot:
			e.slots[head].callback = nil
		case result == Reload:
			if e.slots[head].callback != nil {
				if e.activeCount == 0 {
					e.slots[head].delayToPrevious = e.slots[head].reload
					e.headIdx = head
					e.tailIdx = head
				} else {
					e.insert(head, e.slots[head].reload)
				}
				e.activeCount++
			}
		}
		fired = true
	}

	if e.activeCount > 0 {
		e.slots[e.headIdx].delayToPrevious -= elapsed
		e.proceedingTime += elapsed
	}

	e.mu.Unlock()
	return fired
}

// NextEventDelay returns the time until the soonest pending action, or
// [DelayInfinite] if nothing is scheduled.
func (e *Engine) NextEventDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeCount == 0 {
		return DelayInfinite
	}
	return e.slots[e.headIdx].delayToPrevious
}

// ProceedingTime returns how much of the timeline the current (or most
// recently completed) Proceed call has consumed so far.
func (e *Engine) ProceedingTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proceedingTime
}

// ClearProceedingTime zeroes the proceeding-time counter.
func (e *Engine) ClearProceedingTime() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proceedingTime = 0
}

// IsCallbackArmed reports whether any slot in the pool, active or not yet
// reclaimed, currently holds cb. It scans the whole pool, not just the
// active list.
func (e *Engine) IsCallbackArmed(cb Callback) bool {
	if cb == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.slots {
		if e.slots[i].callback != nil && sameCallback(e.slots[i].callback, cb) {
			return true
		}
	}
	return false
}

// sameCallback compares Callback values by underlying function pointer,
// since Go function values are not comparable with ==. This mirrors the
// original's comparison of C function pointers: it identifies the
// function, not any captured closure state.
func sameCallback(a, b Callback) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
