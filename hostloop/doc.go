// Package hostloop wires an [actionscheduler.Engine] to wall-clock time and
// to an actual suspend/resume cycle. It plays the role the original
// firmware's app_framework module played on top of the bare engine: it
// converts "delay from now" scheduling requests into timeline-relative
// delays, decides how long the process can safely idle before the next
// action is due, and drives that idle period through a pluggable
// [Suspender] so the caller can back it with a real low-power primitive,
// an OS sleep, or nothing at all in tests.
package hostloop
