// Package actionscheduler provides a fixed-capacity, timeline-based
// deferred-action scheduler suitable for embedded or tickless systems.
//
// # Architecture
//
// An [Engine] holds a fixed pool of action slots linked into a doubly
// linked list ordered by expiry. Each node stores its delay relative to
// the previous node, so the head's delay is exactly the time until the
// next event, and [Engine.Proceed] only does work proportional to the
// number of callbacks that actually fire.
//
// Actions are one-shot or reloading: a callback returns [Reload] to be
// re-armed at a fixed interval from the moment it fired, or [Oneshot] to
// free its slot.
//
// The companion package [github.com/windygo/actionscheduler/hostloop]
// layers an absolute-time scheduling shim and a host main loop on top of
// an [Engine], for callers that alternate between proceeding the timeline
// and suspending the CPU until the next event is due.
//
// # Concurrency
//
// All [Engine] methods are safe to call from interrupt-equivalent
// contexts (any goroutine, including ones invoked from a signal handler).
// [Engine.Proceed] releases its internal lock around every callback
// invocation, so callbacks may themselves call any [Engine] method,
// including scheduling new actions or unscheduling the action they are
// currently running on.
package actionscheduler
