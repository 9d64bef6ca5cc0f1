package hostloop

import "sync/atomic"

// WakeLock acquires a recursive hold preventing the loop from suspending,
// and returns a release function. The release function must be called
// exactly once; calling it a second time panics, the same contract a
// defer/release token pattern gives you for a mutex unlock.
//
// Typical use:
//
//	release := loop.WakeLock()
//	defer release()
func (l *Loop) WakeLock() func() {
	l.mu.Lock()
	l.wakeLocks++
	l.mu.Unlock()

	var released int32
	return func() {
		if !atomic.CompareAndSwapInt32(&released, 0, 1) {
			panic("hostloop: wake lock released more than once")
		}
		l.mu.Lock()
		l.wakeLocks--
		l.mu.Unlock()
	}
}

// wakeLocked reports whether any wake lock is currently held.
func (l *Loop) wakeLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wakeLocks > 0
}
