package domain

import "time"

// the wall clock is considered synced once it is past this point
var clockSyncedAfter = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

// ClockSynced reports whether t looks like a real wall-clock time.
func ClockSynced(t time.Time) bool {
	return t.After(clockSyncedAfter)
}

// Millis is a free-running 32-bit millisecond tick. It wraps after ~49.7 days.
type Millis uint32

// Elapsed returns now-last. ok is false when the counter went backwards
// (wrap or reset); callers must then take now as their new baseline.
func Elapsed(now, last Millis) (elapsed Millis, ok bool) {
	if now < last {
		return 0, false
	}
	return now - last, true
}

// Due reports whether interval has passed since last. When the counter went
// backwards the baseline is moved to now and Due reports false.
func Due(now Millis, last *Millis, interval Millis) bool {
	elapsed, ok := Elapsed(now, *last)
	if !ok {
		*last = now
		return false
	}
	return elapsed >= interval
}
