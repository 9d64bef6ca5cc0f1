package actionscheduler

// ActionHandle identifies a previously scheduled action.
//
// It packs a slot index in the low byte and an 8-bit generation counter
// (the slot's usedCounter at the moment it was allocated) in the high
// byte. The generation lets [Engine.Unschedule] detect a stale handle: one
// referring to a slot that has since fired (one-shot) and potentially been
// reused by an unrelated action, without needing to zero every outstanding
// handle when a slot frees.
//
// Because the generation is only 8 bits, after exactly 256 allocations of
// the same slot a stale handle can alias a live one. This is a stated,
// accepted limitation (see spec Open Question 1) rather than a defect;
// widening it to 16 bits would double the handle's size for a failure mode
// that requires sustained churn on a single slot to trigger.
type ActionHandle uint16

// ActionHandleInvalid is returned by Schedule/ScheduleWithReload on
// failure, and is the value written back into a caller's handle by a
// successful Unschedule. Slot 0 is a legitimate slot index, so the all-set
// pattern is used as the sentinel rather than 0.
const ActionHandleInvalid ActionHandle = 0xFFFF

func newActionHandle(slot uint8, generation uint8) ActionHandle {
	return ActionHandle(slot) | ActionHandle(generation)<<8
}

func (h ActionHandle) slot() uint8 {
	return uint8(h & 0xFF)
}

func (h ActionHandle) generation() uint8 {
	return uint8(h >> 8)
}

// Valid reports whether h is not the invalid sentinel. It does not by
// itself mean the handle still refers to a live action — use
// [Engine.IsCallbackArmed] or attempt an [Engine.Unschedule] for that.
func (h ActionHandle) Valid() bool {
	return h != ActionHandleInvalid
}
