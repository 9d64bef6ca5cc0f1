package actionscheduler

// Result is returned by a Callback to tell the engine what to do with the
// slot it just fired from.
type Result int

const (
	// Oneshot frees the slot; the action does not fire again.
	Oneshot Result = iota
	// Reload re-arms the slot at Reload duration from the moment it fired,
	// unless the callback itself already unscheduled or rescheduled the
	// slot during its own invocation.
	Reload
)

// Callback is invoked when a scheduled action's delay elapses. It runs
// with the engine's critical section released, so it may call any Engine
// method, including ones that act on its own slot.
type Callback func(arg any) Result
